package assign

import (
	"math/rand"
	"sort"

	"gostrat/domain/core"
)

// MisfitStrategy decides what happens to the units left over when a stratum's
// size is not a multiple of the block size. It is a closed set; parse once at
// the orchestration boundary and fail fast on unknown names.
type MisfitStrategy int

const (
	// MisfitKeepInStratum leaves misfits in their own stratum; they receive
	// the leftover slots of their stratum's final block permutation. Default.
	MisfitKeepInStratum MisfitStrategy = iota
	// MisfitPoolGlobal pools every stratum's misfits into one sentinel
	// stratum and runs the full assignment procedure on the pool.
	MisfitPoolGlobal
	// MisfitMarkUnassigned leaves misfits out of assignment entirely; their
	// stratum and treatment come back null.
	MisfitMarkUnassigned
)

var strategyNames = map[string]MisfitStrategy{
	"stratum": MisfitKeepInStratum,
	"global":  MisfitPoolGlobal,
	"none":    MisfitMarkUnassigned,
}

// ParseMisfitStrategy maps a strategy name to its variant.
func ParseMisfitStrategy(name string) (MisfitStrategy, error) {
	s, ok := strategyNames[name]
	if !ok {
		return 0, core.NewInvalidMisfitStrategyError(name, MisfitStrategyNames())
	}
	return s, nil
}

// MisfitStrategyNames lists the recognized strategy names in stable order.
func MisfitStrategyNames() []string {
	return []string{"stratum", "global", "none"}
}

func (s MisfitStrategy) String() string {
	switch s {
	case MisfitKeepInStratum:
		return "stratum"
	case MisfitPoolGlobal:
		return "global"
	case MisfitMarkUnassigned:
		return "none"
	}
	return "unknown"
}

// Rearrange re-groups the prepared rows ahead of assignment according to the
// strategy. rows must all carry valid stratum ids; the returned slice is a
// fresh ordering and may relabel misfit rows' strata.
func (s MisfitStrategy) Rearrange(rows []Row, lcm int, rng *rand.Rand) ([]Row, error) {
	switch s {
	case MisfitKeepInStratum:
		// Identity: the assigner's padding already hands within-stratum
		// misfits a slot in their own block permutation.
		return rows, nil
	case MisfitPoolGlobal:
		for _, r := range rows {
			if r.Stratum.Valid && r.Stratum.ID == SentinelStratum {
				return nil, core.ErrStratumSentinelInUse
			}
		}
		good, misfits := extractMisfits(rows, lcm, rng)
		for i := range misfits {
			misfits[i].Stratum = RealStratum(SentinelStratum)
		}
		return append(good, misfits...), nil
	case MisfitMarkUnassigned:
		good, misfits := extractMisfits(rows, lcm, rng)
		for i := range misfits {
			misfits[i].Stratum = NullStratum()
		}
		return append(good, misfits...), nil
	}
	return nil, core.NewInvalidMisfitStrategyError(s.String(), MisfitStrategyNames())
}

// extractMisfits draws exactly (size mod lcm) misfits per stratum, uniformly
// at random and independently across strata: every row gets one uniform
// draw, rows are ordered by (stratum, draw), and the first (size mod lcm)
// rows of each stratum are the misfits.
func extractMisfits(rows []Row, lcm int, rng *rand.Rand) (good, misfits []Row) {
	n := len(rows)
	draws := make([]float64, n)
	for i := range draws {
		draws[i] = rng.Float64()
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rows[order[a]], rows[order[b]]
		if ra.Stratum.ID != rb.Stratum.ID {
			return ra.Stratum.ID < rb.Stratum.ID
		}
		return draws[order[a]] < draws[order[b]]
	})

	sizes := make(map[int64]int)
	for _, r := range rows {
		sizes[r.Stratum.ID]++
	}

	rank := make(map[int64]int)
	for _, i := range order {
		r := rows[i]
		if rank[r.Stratum.ID] < sizes[r.Stratum.ID]%lcm {
			misfits = append(misfits, r)
		} else {
			good = append(good, r)
		}
		rank[r.Stratum.ID]++
	}
	return good, misfits
}
