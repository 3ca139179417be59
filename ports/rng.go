package ports

import "math/rand"

// RNGPort provides seeded random number generation for deterministic
// operations. Implementations must derive independent, reproducible streams:
// the same (name, seed) pair always yields an identical sequence, and no
// process-wide generator is ever touched.
type RNGPort interface {
	// Stream creates a deterministic random number generator for a named
	// pipeline stage.
	Stream(name string, seed int64) *rand.Rand
}
