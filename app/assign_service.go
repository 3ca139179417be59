package app

import (
	"context"

	"gostrat/domain/assign"
	"gostrat/internal/frame"
	"gostrat/ports"
)

// DefaultSeed fixes the pipeline's randomness when the caller does not pick a
// seed.
const DefaultSeed int64 = 42

// Stream names for the deterministic RNG stages. Each stage draws from its
// own stream so strategies that skip a stage do not shift later draws.
const (
	streamMisfit  = "misfit"
	streamPermute = "permute"
)

// AssignRequest mirrors the library's call contract.
type AssignRequest struct {
	Data        *frame.Frame
	StratumCols []string
	// Treats is the number of arms, including control.
	Treats int
	// Probs are the per-arm assignment probabilities; nil means uniform.
	Probs []float64
	Seed  int64
	// IDCol names the unique-identifier column; empty means row position.
	IDCol string
	// Size, when non-nil, sub-samples proportionally within strata first.
	Size *int
	// MisfitStrategy is one of "stratum", "global", "none"; empty means
	// "stratum".
	MisfitStrategy string
}

// AssignResult is the completed assignment plus the resolved configuration.
type AssignResult struct {
	IDCol        string
	Assignments  []assign.Assignment
	Spec         *assign.TreatmentSpec
	StratumCount int
}

// AssignService composes the pipeline: preparation, ratio resolution, misfit
// rearrangement and permutation assignment. It validates nothing itself
// beyond parsing the configuration; data validation lives in the preparator.
type AssignService struct {
	preparator ports.Preparator
	rng        ports.RNGPort
}

// NewAssignService wires the orchestrator with its collaborators.
func NewAssignService(preparator ports.Preparator, rng ports.RNGPort) *AssignService {
	return &AssignService{preparator: preparator, rng: rng}
}

// Assign runs the full pipeline. All configuration and data validation
// happens before any randomness is consumed; any failure aborts the call with
// no partial output.
func (s *AssignService) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	strategyName := req.MisfitStrategy
	if strategyName == "" {
		strategyName = assign.MisfitKeepInStratum.String()
	}
	strategy, err := assign.ParseMisfitStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	spec, err := assign.NewTreatmentSpec(req.Treats, req.Probs)
	if err != nil {
		return nil, err
	}

	prepared, err := s.preparator.Prepare(ctx, ports.PrepRequest{
		Data:        req.Data,
		StratumCols: req.StratumCols,
		IDCol:       req.IDCol,
		Size:        req.Size,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, err
	}

	rows, err := strategy.Rearrange(prepared.Rows, spec.LCMDenominator, s.rng.Stream(streamMisfit, req.Seed))
	if err != nil {
		return nil, err
	}

	assigner := assign.NewPermutationAssigner(spec)
	assignments := assigner.Assign(rows, s.rng.Stream(streamPermute, req.Seed))

	return &AssignResult{
		IDCol:        prepared.IDCol,
		Assignments:  assignments,
		Spec:         spec,
		StratumCount: prepared.StratumCount,
	}, nil
}

// Frame renders the result as a table with columns [idCol, stratum_id,
// treat], in that order. Identifier cells keep their original dynamic type;
// null strata and treatments become nil cells.
func (r *AssignResult) Frame() *frame.Frame {
	f := frame.New(r.IDCol, "stratum_id", "treat")
	for _, a := range r.Assignments {
		var stratum, treat frame.Value
		if a.Stratum.Valid {
			stratum = a.Stratum.ID
		}
		if a.Treat.Valid {
			treat = a.Treat.ID
		}
		_ = f.AppendRow(a.ID.Value(), stratum, treat)
	}
	return f
}
