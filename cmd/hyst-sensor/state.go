package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/hyst-sensor/internal/config"
	"github.com/sweeney/hyst-sensor/internal/gpio"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Read every channel once, print its value and comparator output, and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		reader, _, err := openReader(cfg, logger)
		if err != nil {
			return fmt.Errorf("init %s: %w", cfg.Source, err)
		}
		defer reader.Close()
		return printState(cmd.OutOrStdout(), cfg, reader)
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

// printState takes a single sample and runs it through fresh comparators.
// There is no debouncing, so the output is the instantaneous state.
func printState(w io.Writer, cfg config.Config, reader gpio.Reader) error {
	values, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if len(values) != len(cfg.Channels) {
		return fmt.Errorf("read: got %d values for %d channels", len(values), len(cfg.Channels))
	}
	for i, ch := range cfg.Channels {
		cmp, err := ch.Comparator()
		if err != nil {
			return fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		fmt.Fprintf(w, "%s: %.3f %s %s\n", ch.Name, values[i], stateString(cmp.Update(values[i])), cmp)
	}
	return nil
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
