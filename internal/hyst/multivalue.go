package hyst

import (
	"fmt"
	"math"
	"slices"
)

// MultiValue maps a number onto one of several values separated by
// thresholds, with a hysteresis around every threshold.
//
//	hyst:          <-|->      <-|->     <-|->
//	thresholds:      1          3        4.5
//	           ------|----------|---------|------
//	values:      A        B          C        D
type MultiValue[T comparable] struct {
	lts    []*LessThan
	values []T
	index  int
}

// NewMultiValue creates a MultiValue hysteresis. There must be exactly one
// threshold less than values, and initial must be one of values.
func NewMultiValue[T comparable](values []T, thresholds []float64, hyst float64, initial T) (*MultiValue[T], error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewValues, len(values))
	}
	if len(values) != len(thresholds)+1 {
		return nil, fmt.Errorf("%w: %d thresholds for %d values", ErrThresholdCount, len(thresholds), len(values))
	}
	index := slices.Index(values, initial)
	if index == -1 {
		return nil, fmt.Errorf("%w: initial %v", ErrUnknownValue, initial)
	}

	lts := make([]*LessThan, len(thresholds))
	for i, t := range thresholds {
		lts[i] = NewLessThan(t, hyst, i >= index)
	}
	return &MultiValue[T]{
		lts:    lts,
		values: slices.Clone(values),
		index:  index,
	}, nil
}

// Update feeds x and returns the value of the interval it is in.
func (h *MultiValue[T]) Update(x float64) T {
	h.index = 0
	for _, lt := range h.lts {
		if !lt.Update(x) {
			h.index++
		}
	}
	return h.State()
}

// State returns the current value.
func (h *MultiValue[T]) State() T { return h.values[h.index] }

// SetState overrides the current value.
func (h *MultiValue[T]) SetState(v T) error {
	index := slices.Index(h.values, v)
	if index == -1 {
		return fmt.Errorf("%w: %v", ErrUnknownValue, v)
	}
	h.index = index
	return nil
}

// Thresholds returns the boundaries between the intervals.
func (h *MultiValue[T]) Thresholds() []float64 {
	out := make([]float64, len(h.lts))
	for i, lt := range h.lts {
		out[i] = lt.Threshold()
	}
	return out
}

// Hyst returns the half-width of the transition regions.
func (h *MultiValue[T]) Hyst() float64 { return h.lts[0].Hyst() }

func (h *MultiValue[T]) String() string {
	return fmt.Sprintf("MultiValueHyst(thresholds: %v, hyst: %v, values: %v, state: %v=values[%d])",
		h.Thresholds(), h.Hyst(), h.values, h.State(), h.index)
}

// Vector is a 2D position.
type Vector struct {
	X, Y float64
}

// DistanceSq returns the squared distance between v and w.
func (v Vector) DistanceSq(w Vector) float64 {
	dx, dy := v.X-w.X, v.Y-w.Y
	return dx*dx + dy*dy
}

func (v Vector) String() string {
	return fmt.Sprintf("(%v, %v)", v.X, v.Y)
}

// VectorHyst is a hysteresis for "x is within threshold of target".
type VectorHyst struct {
	target    Vector
	threshold float64
	hyst      float64
	lt        *LessThan
}

// NewVectorHyst creates a hysteresis that is true while the input is within
// threshold of target.
func NewVectorHyst(target Vector, threshold, hyst float64, initial bool) (*VectorHyst, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeThreshold, threshold)
	}
	if hyst > threshold {
		return nil, fmt.Errorf("%w: hyst %v, threshold %v", ErrHystTooLarge, hyst, threshold)
	}
	// compare squared distances to skip the square root on every update
	lower := math.Pow(threshold-hyst, 2)
	upper := math.Pow(threshold+hyst, 2)
	return &VectorHyst{
		target:    target,
		threshold: threshold,
		hyst:      hyst,
		lt:        LessThanFromBounds(lower, upper, initial),
	}, nil
}

// Update feeds position x and returns the new state.
func (h *VectorHyst) Update(x Vector) bool {
	return h.lt.Update(h.target.DistanceSq(x))
}

// State returns the current state.
func (h *VectorHyst) State() bool { return h.lt.State() }

// SetState overrides the current state.
func (h *VectorHyst) SetState(s bool) { h.lt.SetState(s) }

// Target returns the targeted position.
func (h *VectorHyst) Target() Vector { return h.target }

func (h *VectorHyst) String() string {
	return fmt.Sprintf("VectorHyst(target: %v, thresh: %v, hyst: %v, state: %t)", h.target, h.threshold, h.hyst, h.State())
}
