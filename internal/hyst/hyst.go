// Package hyst provides hysteresis comparators for noisy, continuous inputs.
// This package has NO external dependencies and holds no shared state; every
// comparator is owned by exactly one caller.
//
// A plain comparison against a single threshold flickers when the input is
// noisy and hovers around the threshold. A hysteresis uses two bounds instead:
// the output only changes when the input crosses the outer bound for that
// direction, and inputs between the bounds keep the previous output.
package hyst

import (
	"errors"
	"fmt"
)

// Hyst is a stateful comparator that maps inputs of type In to an output of
// type Out, suppressing flicker.
type Hyst[In, Out any] interface {
	// State returns the current output without updating.
	State() Out
	// Update feeds a new input and returns the (possibly unchanged) output.
	Update(x In) Out
}

var (
	// ErrInvalidInterval indicates an interval whose lower end exceeds its upper end.
	ErrInvalidInterval = errors.New("hyst: interval lower end exceeds upper end")

	// ErrTooFewValues indicates a MultiValue with fewer than two values.
	ErrTooFewValues = errors.New("hyst: at least two values required")

	// ErrThresholdCount indicates a MultiValue whose values and thresholds don't line up.
	ErrThresholdCount = errors.New("hyst: need exactly one threshold less than values")

	// ErrUnknownValue indicates a state that is not one of the possible values.
	ErrUnknownValue = errors.New("hyst: value not in possible values")

	// ErrNegativeThreshold indicates a negative distance or angle difference.
	ErrNegativeThreshold = errors.New("hyst: threshold must be non-negative")

	// ErrHystTooLarge indicates a hysteresis value larger than the threshold it surrounds.
	ErrHystTooLarge = errors.New("hyst: hysteresis larger than threshold")
)

// LessThan is a hysteresis for x < threshold.
//
// The state becomes true once x drops below threshold-hyst and false once x
// rises above threshold+hyst. Both comparisons are strict, so a value exactly
// on a bound never changes the state.
//
// A negative hyst is accepted: the bounds invert and the comparator keeps
// behaving deterministically (an input beyond both bounds ends up false).
type LessThan struct {
	lower float64
	upper float64
	state bool
}

// NewLessThan creates a hysteresis for x < threshold.
func NewLessThan(threshold, hyst float64, initial bool) *LessThan {
	return &LessThan{
		lower: threshold - hyst,
		upper: threshold + hyst,
		state: initial,
	}
}

// LessThanFromBounds creates a hysteresis that turns true below lower and
// false above upper.
func LessThanFromBounds(lower, upper float64, initial bool) *LessThan {
	return NewLessThan((lower+upper)/2, (upper-lower)/2, initial)
}

// Update feeds x and returns the new state.
func (h *LessThan) Update(x float64) bool {
	if x < h.lower {
		h.state = true
	}
	if x > h.upper {
		h.state = false
	}
	return h.state
}

// State returns the current state.
func (h *LessThan) State() bool { return h.state }

// SetState overrides the current state.
func (h *LessThan) SetState(s bool) { h.state = s }

// Threshold returns the right hand side of the comparison.
func (h *LessThan) Threshold() float64 { return (h.lower + h.upper) / 2 }

// Hyst returns the half-width of the transition region.
func (h *LessThan) Hyst() float64 { return (h.upper - h.lower) / 2 }

// Bounds returns the lower and upper bound.
func (h *LessThan) Bounds() (lower, upper float64) { return h.lower, h.upper }

func (h *LessThan) String() string {
	return fmt.Sprintf("LessThanHyst(bounds: [%v, %v], state: %t)", h.lower, h.upper, h.state)
}

// GreaterThan is a hysteresis for x > threshold.
//
// It is the logical complement of a LessThan constructed with the inverted
// initial state. The state is never stored here; it is always derived from
// the inner comparator.
type GreaterThan struct {
	lt *LessThan
}

// NewGreaterThan creates a hysteresis for x > threshold.
func NewGreaterThan(threshold, hyst float64, initial bool) *GreaterThan {
	return &GreaterThan{lt: NewLessThan(threshold, hyst, !initial)}
}

// GreaterThanFromBounds creates a hysteresis that turns true above upper and
// false below lower.
func GreaterThanFromBounds(lower, upper float64, initial bool) *GreaterThan {
	return NewGreaterThan((lower+upper)/2, (upper-lower)/2, initial)
}

// Update feeds x and returns the new state.
func (h *GreaterThan) Update(x float64) bool {
	return !h.lt.Update(x)
}

// State returns the current state.
func (h *GreaterThan) State() bool { return !h.lt.State() }

// SetState overrides the current state.
func (h *GreaterThan) SetState(s bool) { h.lt.SetState(!s) }

// Threshold returns the right hand side of the comparison.
func (h *GreaterThan) Threshold() float64 { return h.lt.Threshold() }

// Hyst returns the half-width of the transition region.
func (h *GreaterThan) Hyst() float64 { return h.lt.Hyst() }

// Bounds returns the lower and upper bound.
func (h *GreaterThan) Bounds() (lower, upper float64) { return h.lt.Bounds() }

func (h *GreaterThan) String() string {
	lower, upper := h.Bounds()
	return fmt.Sprintf("GreaterThanHyst(bounds: [%v, %v], state: %t)", lower, upper, h.State())
}
