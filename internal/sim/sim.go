// Package sim provides a deterministic signal source for running the sensor
// without hardware. Each channel is a random walk in [0, 1] with Gaussian
// noise and occasional jumps to a new level. The same seed always produces
// the same samples.
package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sweeney/hyst-sensor/internal/random"
)

var (
	// ErrNoChannels indicates a simulator without channels.
	ErrNoChannels = errors.New("sim: no channels configured")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("sim: reader closed")
)

// Config controls the simulated signal.
type Config struct {
	Seed     uint32
	Channels int
	// Noise is the standard deviation of the per-read step.
	Noise float64
	// JumpOdds gives a 1 in JumpOdds chance per read that a channel jumps
	// to a fresh uniform level. Zero disables jumps.
	JumpOdds int64
}

// DefaultConfig returns a config producing slow drift with rare jumps.
func DefaultConfig(seed uint32, channels int) Config {
	return Config{Seed: seed, Channels: channels, Noise: 0.05, JumpOdds: 50}
}

// Reader is a seeded simulated gpio.Reader.
type Reader struct {
	cfg    Config
	src    *random.Random
	rng    *rand.Rand
	levels []float64
	closed bool
}

// New creates a simulator. Initial levels are drawn from the generator.
func New(cfg Config) (*Reader, error) {
	if cfg.Channels < 1 {
		return nil, ErrNoChannels
	}
	if cfg.Noise < 0 {
		return nil, fmt.Errorf("sim: negative noise %v", cfg.Noise)
	}
	if cfg.JumpOdds < 0 {
		return nil, fmt.Errorf("sim: negative jump odds %d", cfg.JumpOdds)
	}

	src := random.New(cfg.Seed)
	r := &Reader{
		cfg:    cfg,
		src:    src,
		rng:    src.Rand(),
		levels: make([]float64, cfg.Channels),
	}
	for i := range r.levels {
		r.levels[i] = src.NextNumber()
	}
	return r, nil
}

// Read advances every channel by one step and returns the new levels.
func (r *Reader) Read() ([]float64, error) {
	if r.closed {
		return nil, ErrClosed
	}

	out := make([]float64, len(r.levels))
	for i, level := range r.levels {
		if r.cfg.JumpOdds > 0 {
			n, err := r.src.NextInt32Range(random.Range{Lo: 1, Hi: r.cfg.JumpOdds})
			if err != nil {
				return nil, fmt.Errorf("draw jump: %w", err)
			}
			if n == 1 {
				level = r.src.NextNumber()
			}
		}
		level = clamp(level + r.rng.NormFloat64()*r.cfg.Noise)
		r.levels[i] = level
		out[i] = level
	}
	return out, nil
}

// Close stops the simulator.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
