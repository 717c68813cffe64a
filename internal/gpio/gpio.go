// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Reader reads one value per channel.
type Reader interface {
	// Read returns one value in [0, 1] per channel, in channel order.
	// For GPIO lines this is the fraction of samples in which the line
	// was logically active.
	Read() ([]float64, error)

	// Close releases GPIO resources.
	Close() error
}

// ErrNoLines is returned when a reader is created without any lines.
var ErrNoLines = errors.New("gpio: no lines configured")

// Line describes one input line.
type Line struct {
	// Offset is the line offset on the chip (BCM numbering on a Pi).
	Offset int
	// ActiveLow inverts the raw value: raw 0 counts as active.
	ActiveLow bool
}

// DefaultChip is the chip opened when none is configured.
const DefaultChip = "gpiochip0"

// dutyCycle returns the fraction of raw samples that are logically active.
func dutyCycle(raw []int, activeLow bool) float64 {
	if len(raw) == 0 {
		return 0
	}
	active := 0
	for _, v := range raw {
		if (v != 0) != activeLow {
			active++
		}
	}
	return float64(active) / float64(len(raw))
}
