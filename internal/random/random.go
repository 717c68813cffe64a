// Package random provides a seeded MT19937 generator whose output is
// reproducible across runs and platforms.
//
// All arithmetic is explicit uint32 so the sequence matches the reference
// implementation bit for bit. A Random is not safe for concurrent use.
package random

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff
)

// DefaultSeed is the seed used by NewDefault.
const DefaultSeed uint32 = 5489

// ErrInvalidRange indicates a range whose upper end is below its lower end.
var ErrInvalidRange = errors.New("random: invalid range")

// Range is an inclusive integer range [Lo, Hi].
type Range struct {
	Lo, Hi int64
}

// span returns Hi-Lo as an unsigned distance, which cannot overflow for
// Hi >= Lo.
func (r Range) span() uint64 {
	return uint64(r.Hi - r.Lo)
}

// Random is an MT19937 pseudo-random generator.
type Random struct {
	mt [n]uint32
	// index of the next word to temper; n means the state must be
	// regenerated before the next draw
	index int
}

// New creates a generator seeded with seed.
func New(seed uint32) *Random {
	r := &Random{}
	r.mt[0] = seed
	for i := 1; i < n; i++ {
		prev := r.mt[i-1]
		r.mt[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	r.index = n
	return r
}

// NewDefault creates a generator seeded with DefaultSeed.
func NewDefault() *Random {
	return New(DefaultSeed)
}

// twist regenerates all n state words.
func (r *Random) twist() {
	mag01 := [2]uint32{0, matrixA}
	var kk int
	for ; kk < n-m; kk++ {
		y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
		r.mt[kk] = r.mt[kk+m] ^ (y >> 1) ^ mag01[y&1]
	}
	for ; kk < n-1; kk++ {
		y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
		r.mt[kk] = r.mt[kk+m-n] ^ (y >> 1) ^ mag01[y&1]
	}
	y := (r.mt[n-1] & upperMask) | (r.mt[0] & lowerMask)
	r.mt[n-1] = r.mt[m-1] ^ (y >> 1) ^ mag01[y&1]
	r.index = 0
}

// NextUint32 returns a number in [0, 0xffffffff].
func (r *Random) NextUint32() uint32 {
	if r.index >= n {
		r.twist()
	}
	y := r.mt[r.index]
	r.index++

	// tempering
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// NextInt32 returns a raw draw in [0, 0xffffffff].
func (r *Random) NextInt32() int64 {
	return int64(r.NextUint32())
}

// NextInt32Range returns a number in [rng.Lo, rng.Hi], both inclusive.
//
// The draw is reduced modulo the range size, which is slightly biased for
// sizes that don't divide 2^32. The bias is kept so that recorded runs
// replay identically. A draw is consumed only for a valid range.
func (r *Random) NextInt32Range(rng Range) (int64, error) {
	if rng.Hi < rng.Lo {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, rng.Lo, rng.Hi)
	}
	draw := uint64(r.NextUint32())
	// a span of 2^32-1 or more already holds every draw
	if span := rng.span(); span < math.MaxUint32 {
		draw %= span + 1
	}
	return rng.Lo + int64(draw), nil
}

// NextInt31 returns a number in [0, 0x7fffffff].
func (r *Random) NextInt31() int32 {
	return int32(r.NextUint32() >> 1)
}

// NextNumber returns a number in [0, 1], both inclusive.
func (r *Random) NextNumber() float64 {
	return float64(r.NextUint32()) * (1.0 / 4294967295.0)
}

// NextNumber53 returns a number in [0, 1) with 53-bit resolution.
func (r *Random) NextNumber53() float64 {
	a := r.NextUint32() >> 5
	b := r.NextUint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}

// Uint64 returns two draws combined as hi<<32 | lo. It makes a *Random a
// math/rand/v2 Source.
func (r *Random) Uint64() uint64 {
	hi := uint64(r.NextUint32())
	lo := uint64(r.NextUint32())
	return hi<<32 | lo
}

// Rand returns a *rand.Rand drawing from r. Both share state.
func (r *Random) Rand() *rand.Rand {
	return rand.New(r)
}

var _ rand.Source = (*Random)(nil)
