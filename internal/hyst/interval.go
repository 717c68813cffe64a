package hyst

import (
	"fmt"
	"math"
)

// InInterval is a hysteresis for lower < x < upper.
type InInterval struct {
	// x is in the interval if it is less than the upper end and greater
	// than the lower end
	lt *LessThan
	gt *GreaterThan
}

// NewInInterval creates a hysteresis that is true while x is inside
// [lower, upper].
func NewInInterval(lower, upper, hyst float64, initial bool) (*InInterval, error) {
	if lower > upper {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidInterval, lower, upper)
	}
	// An initial false puts both halves in false, which Update can never
	// reach. Harmless: true needs both halves true.
	return &InInterval{
		lt: NewLessThan(upper, hyst, initial),
		gt: NewGreaterThan(lower, hyst, initial),
	}, nil
}

// Update feeds x and returns the new state.
func (h *InInterval) Update(x float64) bool {
	h.lt.Update(x)
	h.gt.Update(x)
	return h.State()
}

// State returns the current state.
func (h *InInterval) State() bool { return h.lt.State() && h.gt.State() }

// SetState overrides the current state.
func (h *InInterval) SetState(s bool) {
	h.lt.SetState(s)
	h.gt.SetState(s)
}

// Interval returns the targeted interval.
func (h *InInterval) Interval() (lower, upper float64) {
	return h.gt.Threshold(), h.lt.Threshold()
}

// Hyst returns the half-width of both transition regions.
func (h *InInterval) Hyst() float64 { return h.lt.Hyst() }

func (h *InInterval) String() string {
	lower, upper := h.Interval()
	return fmt.Sprintf("InIntervalHyst(interval: [%v, %v], hyst: %v, state: %t)", lower, upper, h.Hyst(), h.State())
}

// Angle is a hysteresis for "angle x is within diff of target".
//
// Inputs don't need to be normalized. Update maps them into
// [target-π, target+π] so that the discontinuity sits opposite the interval.
type Angle struct {
	target float64
	in     *InInterval
}

// NewAngle creates a hysteresis that is true while x is inside
// [target-diff, target+diff]. diff must be in [0, π] and hyst must not
// exceed diff.
func NewAngle(target, diff, hyst float64, initial bool) (*Angle, error) {
	if diff < 0 {
		return nil, fmt.Errorf("%w: diff %v", ErrNegativeThreshold, diff)
	}
	if diff > math.Pi {
		return nil, fmt.Errorf("%w: diff %v exceeds pi", ErrInvalidInterval, diff)
	}
	if hyst > diff {
		return nil, fmt.Errorf("%w: hyst %v, diff %v", ErrHystTooLarge, hyst, diff)
	}
	in, err := NewInInterval(target-diff, target+diff, hyst, initial)
	if err != nil {
		return nil, err
	}
	return &Angle{target: target, in: in}, nil
}

// Update feeds angle x and returns the new state. NaN and ±Inf have no
// direction and leave the state unchanged.
func (h *Angle) Update(x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return h.State()
	}
	return h.in.Update(h.target + math.Remainder(x-h.target, 2*math.Pi))
}

// State returns the current state.
func (h *Angle) State() bool { return h.in.State() }

// SetState overrides the current state.
func (h *Angle) SetState(s bool) { h.in.SetState(s) }

// Target returns the angle in the center of the interval.
func (h *Angle) Target() float64 { return h.target }

// Diff returns the half-width of the angle interval.
func (h *Angle) Diff() float64 {
	lower, upper := h.in.Interval()
	return (upper - lower) / 2
}

// Hyst returns the half-width of the transition regions.
func (h *Angle) Hyst() float64 { return h.in.Hyst() }

func (h *Angle) String() string {
	return fmt.Sprintf("AngleHyst(target: %v, diff: %v, hyst: %v, state: %t)", h.target, h.Diff(), h.Hyst(), h.State())
}
