package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/hyst-sensor/internal/config"
	"github.com/sweeney/hyst-sensor/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "hyst-sensor",
	Short: "Hysteresis sensor daemon",
	Long: `hyst-sensor samples GPIO lines (or a seeded simulator), runs every channel
through a hysteresis comparator and a debouncer, and publishes state changes to MQTT.

Configuration comes from the YAML file given by --config, then HYST_SENSOR_*
environment variables, then command line flags.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	def := config.Default()

	// Persistent flags (available to all commands)
	f := rootCmd.PersistentFlags()
	f.String("config", "", "YAML config file (a missing file means built-in defaults)")
	f.String("broker", def.Broker, "MQTT broker address")
	f.Duration("poll", def.Poll, "Polling interval")
	f.Duration("debounce", def.Debounce, "Debounce duration")
	f.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	f.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	f.String("ws-broker", def.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	f.String("source", def.Source, `Input source ("gpio" or "sim")`)
	f.Int64("seed", def.Seed, "Simulator seed (-1 draws a random one)")
	f.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	f.String("log-format", def.LogFormat, "Log format (text or json)")
}

// loadConfig layers the config file, the environment and explicitly set
// flags, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("broker") {
		cfg.Broker, _ = fs.GetString("broker")
	}
	if fs.Changed("poll") {
		cfg.Poll, _ = fs.GetDuration("poll")
	}
	if fs.Changed("debounce") {
		cfg.Debounce, _ = fs.GetDuration("debounce")
	}
	if fs.Changed("heartbeat") {
		cfg.Heartbeat, _ = fs.GetDuration("heartbeat")
	}
	if fs.Changed("http") {
		cfg.HTTPAddr, _ = fs.GetString("http")
	}
	if fs.Changed("ws-broker") {
		cfg.WSBroker, _ = fs.GetString("ws-broker")
	}
	if fs.Changed("source") {
		cfg.Source, _ = fs.GetString("source")
	}
	if fs.Changed("seed") {
		cfg.Seed, _ = fs.GetInt64("seed")
	}
	if fs.Changed("log-level") {
		cfg.LogLevel, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-format") {
		cfg.LogFormat, _ = fs.GetString("log-format")
	}
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level, cfg.LogFormat)
}
