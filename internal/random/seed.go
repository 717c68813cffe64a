package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NewSeed generates a seed using crypto/rand.
func NewSeed() (uint32, error) {
	var b [4]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// SeedFromTime derives a seed from a wall-clock time. The caller supplies
// the time so runs can be replayed.
func SeedFromTime(t time.Time) uint32 {
	ns := uint64(t.UnixNano())
	return uint32(ns) ^ uint32(ns>>32)
}
