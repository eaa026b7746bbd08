// Package entropy provides the seeded random source shared by initialization
// and every tick of a run. Falls back to crypto/rand only to pick a seed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// Float is the slice of a random source that a person's luck check needs.
type Float interface {
	Float64() float64
}

// Fixed always returns the same draw. Useful for forcing luck checks.
type Fixed float64

// Float64 returns the fixed value.
func (f Fixed) Float64() float64 {
	return float64(f)
}

// NewSource returns a deterministic generator for the given seed. One source
// is created per run and passed explicitly; nothing reads the global source.
func NewSource(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// ResolveSeed returns *seed when set, otherwise draws a fresh seed from
// crypto/rand. The chosen seed is logged so the run can be replayed.
func ResolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	s := cryptoRandSeed()
	slog.Info("no seed configured, drew one", "seed", s)
	return s
}

// cryptoRandSeed generates a non-negative int64 using crypto/rand.
func cryptoRandSeed() int64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but fall back to a fixed seed.
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
