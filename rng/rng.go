// Package rng provides the single deterministic random source owned by an engine.
package rng

import (
	"fmt"
	"math/rand/v2"
)

// streamSalt separates the two PCG words so seed 0 still yields a usable stream.
const streamSalt = 0x9e3779b97f4a7c15

// RNG is a seeded PCG generator. All methods of rand.Rand are available.
// It is not safe for concurrent use.
type RNG struct {
	*rand.Rand
	src  *rand.PCG
	seed int64
}

// New returns a generator seeded from seed.
func New(seed int64) *RNG {
	src := rand.NewPCG(uint64(seed), uint64(seed)^streamSalt)
	return &RNG{Rand: rand.New(src), src: src, seed: seed}
}

// Seed returns the seed the generator was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Chance reports true with probability p.
func (r *RNG) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// Range returns a uniform value in [lo, hi).
func (r *RNG) Range(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// State returns the generator state for persistence.
func (r *RNG) State() ([]byte, error) {
	return r.src.MarshalBinary()
}

// Restore replaces the generator state with one produced by State.
func (r *RNG) Restore(state []byte) error {
	if err := r.src.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restoring rng state: %w", err)
	}
	return nil
}
