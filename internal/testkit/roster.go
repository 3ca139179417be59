// Package testkit generates deterministic synthetic trial rosters for tests
// and demos.
package testkit

import (
	"fmt"
	"math/rand"

	"gostrat/internal/frame"

	"github.com/google/uuid"
)

// RosterConfig controls the shape of a generated roster.
type RosterConfig struct {
	// Units is the number of rows to generate.
	Units int
	// Sites and AgeBands are the stratification-column cardinalities.
	Sites    int
	AgeBands int
	// UUIDIDs switches the id column from int64 to uuid.UUID values.
	UUIDIDs bool
	// Seed fixes the generated roster.
	Seed int64
}

// DefaultRosterConfig returns a small roster suitable for unit tests.
func DefaultRosterConfig() RosterConfig {
	return RosterConfig{Units: 100, Sites: 3, AgeBands: 4, Seed: 7}
}

// GenerateRoster builds a frame with columns [id, site, age_band]. The same
// config always produces the same roster.
func GenerateRoster(cfg RosterConfig) *frame.Frame {
	r := rand.New(rand.NewSource(cfg.Seed))

	f := frame.New("id", "site", "age_band")
	for i := 0; i < cfg.Units; i++ {
		var id frame.Value
		if cfg.UUIDIDs {
			var raw [16]byte
			r.Read(raw[:])
			raw[6] = (raw[6] & 0x0f) | 0x40
			raw[8] = (raw[8] & 0x3f) | 0x80
			id = uuid.UUID(raw)
		} else {
			id = int64(i + 1)
		}
		site := fmt.Sprintf("site-%02d", r.Intn(cfg.Sites))
		ageBand := int64(r.Intn(cfg.AgeBands))
		_ = f.AppendRow(id, site, ageBand)
	}
	return f
}
