// Package rng implements ports.RNGPort with explicitly seeded generators,
// one independent stream per named pipeline stage. Nothing here touches the
// package-level math/rand state, so concurrent pipelines cannot interfere.
package rng

import (
	"hash/fnv"
	"math/rand"
)

// Seeded derives a deterministic *rand.Rand per (name, seed) pair by folding
// the stage name into the seed.
type Seeded struct{}

// NewSeeded creates a new seeded RNG provider.
func NewSeeded() *Seeded {
	return &Seeded{}
}

// Stream returns a generator whose sequence is fixed by the stage name and
// seed. Distinct names under the same seed give unrelated streams.
func (s *Seeded) Stream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	mixed := seed ^ int64(h.Sum64())
	return rand.New(rand.NewSource(mixed))
}
