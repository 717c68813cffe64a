package random

import (
	"errors"
	"fmt"
)

// ErrUnseeded indicates a Context used before Seed was called.
var ErrUnseeded = errors.New("random: generator used before seeding")

// ErrAlreadySeeded indicates a second Seed call within one run.
var ErrAlreadySeeded = errors.New("random: generator already seeded")

// Generator is the draw surface that decision logic depends on.
type Generator interface {
	NextUint32() uint32
	NextInt32() int64
	NextInt32Range(rng Range) (int64, error)
	NextInt31() int32
	NextNumber() float64
	NextNumber53() float64
}

var _ Generator = (*Random)(nil)

// Context owns the generator for a single run. It is passed explicitly to
// the code that draws numbers; there is no package-level generator.
//
// A Context must be seeded exactly once before Generator is called. If an
// alternate generator is installed (for example one provided by a host
// runtime), it is handed out instead of the seeded MT19937 instance.
type Context struct {
	seed      uint32
	seeded    bool
	mt        *Random
	alternate Generator
}

// NewContext creates an unseeded Context.
func NewContext() *Context {
	return &Context{}
}

// Seed initializes the context's generator.
func (c *Context) Seed(seed uint32) error {
	if c.seeded {
		return fmt.Errorf("%w: seed %d", ErrAlreadySeeded, c.seed)
	}
	c.seed = seed
	c.seeded = true
	c.mt = New(seed)
	return nil
}

// UseAlternate installs g as the generator handed out by Generator. A nil g
// switches back to the seeded MT19937 instance.
func (c *Context) UseAlternate(g Generator) {
	c.alternate = g
}

// Generator returns the generator for this run.
func (c *Context) Generator() (Generator, error) {
	if !c.seeded {
		return nil, ErrUnseeded
	}
	if c.alternate != nil {
		return c.alternate, nil
	}
	return c.mt, nil
}

// SeedValue returns the seed and whether the context has been seeded.
func (c *Context) SeedValue() (uint32, bool) {
	return c.seed, c.seeded
}
