//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip    *gpiocdev.Chip
	lines   []*gpiocdev.Line
	config  []Line
	samples int
	raw     []int
}

// NewRealReader requests every line as an input with pull-down and samples
// each of them samplesPerRead times per Read.
func NewRealReader(chipName string, lines []Line, samplesPerRead int) (*RealReader, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if chipName == "" {
		chipName = DefaultChip
	}
	if samplesPerRead < 1 {
		samplesPerRead = 1
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{
		chip:    chip,
		config:  lines,
		samples: samplesPerRead,
		raw:     make([]int, samplesPerRead),
	}

	// Request lines as input with pull-down to match Pi boot defaults.
	for _, l := range lines {
		line, err := chip.RequestLine(l.Offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request line %d: %w", l.Offset, err)
		}
		r.lines = append(r.lines, line)
	}

	return r, nil
}

// Read samples every line and returns its duty cycle.
func (r *RealReader) Read() ([]float64, error) {
	out := make([]float64, len(r.lines))
	for i, line := range r.lines {
		for s := 0; s < r.samples; s++ {
			v, err := line.Value()
			if err != nil {
				return nil, fmt.Errorf("read line %d: %w", r.config[i].Offset, err)
			}
			r.raw[s] = v
		}
		out[i] = dutyCycle(r.raw, r.config[i].ActiveLow)
	}
	return out, nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing so external hardware sees a clean state on reboot.
func (r *RealReader) Close() error {
	var errs []error

	for i, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", r.config[i].Offset, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", r.config[i].Offset, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	return errors.Join(errs...)
}
