// Package assign implements stratified random assignment of units to
// treatment arms. Within every stratum the realized arm counts match the
// target probabilities as closely as integer counts allow; leftovers
// ("misfits") are handled by a pluggable strategy.
package assign

import "gostrat/domain/core"

// SentinelStratum is the reserved stratum id that pools cross-stratum
// misfits under the global misfit strategy. Real stratum ids are dense
// non-negative integers, so the sentinel can never collide with one.
const SentinelStratum int64 = -1

// Stratum is a nullable stratum id. Valid is false only for units the
// "none" misfit strategy left unassigned.
type Stratum struct {
	ID    int64
	Valid bool
}

// RealStratum returns a valid stratum reference.
func RealStratum(id int64) Stratum {
	return Stratum{ID: id, Valid: true}
}

// NullStratum marks a unit as outside any stratum.
func NullStratum() Stratum {
	return Stratum{}
}

// Treatment is a nullable arm label. Valid is false for unassigned misfits.
type Treatment struct {
	ID    int64
	Valid bool
}

// Row is one prepared unit: its opaque identifier plus the stratum it was
// grouped into by the preparator.
type Row struct {
	ID      core.UnitID
	Stratum Stratum
}

// Assignment is one output row. Created once per input unit and immutable
// thereafter.
type Assignment struct {
	ID      core.UnitID
	Stratum Stratum
	Treat   Treatment
}
