package ports

import (
	"context"

	"gostrat/domain/assign"
	"gostrat/internal/frame"
)

// PrepRequest carries the raw table and the columns that drive preparation.
type PrepRequest struct {
	Data        *frame.Frame
	StratumCols []string
	// IDCol names the unique-identifier column. Empty means identifiers are
	// synthesized from row position.
	IDCol string
	// Size, when non-nil, requests proportional sub-sampling down to this
	// many rows before assignment.
	Size *int
	Seed int64
}

// PrepResult is the normalized output: one prepared row per retained unit,
// sorted by identifier, with dense non-negative stratum ids.
type PrepResult struct {
	Rows []assign.Row
	// IDCol is the resolved identifier column name ("index" when
	// synthesized).
	IDCol string
	// StratumCount is the number of distinct strata.
	StratumCount int
}

// Preparator validates a raw table and reduces it to the {id, stratum_id}
// form the assignment core consumes. All input validation lives here; the
// core assumes well-formed rows.
type Preparator interface {
	Prepare(ctx context.Context, req PrepRequest) (*PrepResult, error)
}
