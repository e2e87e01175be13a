package sim

import "math/rand"

// Rand is the randomness seam for probe generation and pacing jitter.
// *math/rand.Rand satisfies it; tests substitute scripted sequences to pin
// down derived values exactly.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}
