// Package prep implements ports.Preparator: input validation, identifier
// handling, dense stratum numbering and optional proportional sub-sampling.
// Every user-facing validation error originates here, before any randomness
// is consumed by the assignment core.
package prep

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gostrat/domain/assign"
	"gostrat/domain/core"
	"gostrat/internal/frame"
	"gostrat/ports"
)

const minRows = 2

// OrdinalIDCol is the column name reported when identifiers were synthesized
// from row position.
const OrdinalIDCol = "index"

// DataPreparator validates and normalizes raw tabular input.
type DataPreparator struct {
	rng ports.RNGPort
}

// NewDataPreparator creates a preparator drawing sampling randomness from rng.
func NewDataPreparator(rng ports.RNGPort) *DataPreparator {
	return &DataPreparator{rng: rng}
}

// Prepare validates req.Data and reduces it to id-sorted {id, stratum} rows.
func (p *DataPreparator) Prepare(_ context.Context, req ports.PrepRequest) (*ports.PrepResult, error) {
	data := req.Data
	if data == nil || data.Len() == 0 {
		return nil, core.ErrEmptyInput
	}
	if data.Len() < minRows {
		return nil, core.ErrInsufficientRows
	}
	if len(req.StratumCols) == 0 {
		return nil, fmt.Errorf("%w: no stratification columns given", core.ErrMissingColumn)
	}
	for _, c := range req.StratumCols {
		if !data.HasColumn(c) {
			return nil, core.NewMissingColumnError(c)
		}
	}

	ids, idCol, err := resolveIdentifiers(data, req.IDCol)
	if err != nil {
		return nil, err
	}

	if req.Size != nil && *req.Size > data.Len() {
		return nil, core.NewOversizedSampleError(*req.Size, data.Len())
	}

	// Sort rows by identifier. This is what makes the pipeline invariant to
	// input row order: from here on every random draw attaches to a unit by
	// its identity, not its original position.
	order := make([]int, data.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return core.CompareUnitIDs(ids[order[a]], ids[order[b]]) < 0
	})

	strata, stratumCount, err := numberStrata(data, req.StratumCols, order)
	if err != nil {
		return nil, err
	}

	rows := make([]assign.Row, len(order))
	for i, ri := range order {
		rows[i] = assign.Row{ID: ids[ri], Stratum: assign.RealStratum(strata[i])}
	}

	if req.Size != nil {
		rows = p.sampleProportionally(rows, *req.Size, req.Seed)
	}

	return &ports.PrepResult{Rows: rows, IDCol: idCol, StratumCount: stratumCount}, nil
}

// resolveIdentifiers wraps the id column cells (or row ordinals) as opaque
// UnitIDs and rejects duplicates.
func resolveIdentifiers(data *frame.Frame, idCol string) ([]core.UnitID, string, error) {
	ids := make([]core.UnitID, data.Len())
	if idCol == "" {
		for i := range ids {
			ids[i] = core.OrdinalUnitID(i)
		}
		idCol = OrdinalIDCol
	} else {
		col, err := data.Column(idCol)
		if err != nil {
			return nil, "", err
		}
		for i, cell := range col {
			id, err := core.NewUnitID(cell)
			if err != nil {
				return nil, "", err
			}
			ids[i] = id
		}
	}

	seen := make(map[core.UnitID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, "", fmt.Errorf("%w: %v", core.ErrDuplicateIdentifier, id)
		}
		seen[id] = struct{}{}
	}
	return ids, idCol, nil
}

// numberStrata assigns dense zero-based stratum ids, numbered by the sorted
// order of distinct stratification-key combinations (group-numbering
// semantics: labels follow key sort order, not input order). The returned
// slice is aligned with the id-sorted row order.
func numberStrata(data *frame.Frame, stratumCols []string, order []int) ([]int64, int, error) {
	cols := make([][]frame.Value, len(stratumCols))
	for j, name := range stratumCols {
		col, err := data.Column(name)
		if err != nil {
			return nil, 0, err
		}
		cols[j] = col
	}

	key := func(row int) []frame.Value {
		k := make([]frame.Value, len(cols))
		for j := range cols {
			k[j] = cols[j][row]
		}
		return k
	}

	sortedKeys := make([][]frame.Value, 0)
	for _, ri := range order {
		sortedKeys = append(sortedKeys, key(ri))
	}
	sort.SliceStable(sortedKeys, func(a, b int) bool {
		return compareKeys(sortedKeys[a], sortedKeys[b]) < 0
	})

	keyID := make([]int64, 0, len(sortedKeys))
	gid := int64(-1)
	for i := range sortedKeys {
		if i == 0 || compareKeys(sortedKeys[i-1], sortedKeys[i]) != 0 {
			gid++
		}
		keyID = append(keyID, gid)
	}
	lookup := func(k []frame.Value) int64 {
		lo := sort.Search(len(sortedKeys), func(i int) bool {
			return compareKeys(sortedKeys[i], k) >= 0
		})
		return keyID[lo]
	}

	strata := make([]int64, len(order))
	for i, ri := range order {
		strata[i] = lookup(key(ri))
	}
	return strata, int(gid) + 1, nil
}

func compareKeys(a, b []frame.Value) int {
	for j := range a {
		if c := core.CompareScalars(a[j], b[j]); c != 0 {
			return c
		}
	}
	return 0
}

// sampleProportionally draws a seeded per-stratum sample so each stratum
// contributes round(size * its share of rows). Selected rows keep their
// id-sorted order.
func (p *DataPreparator) sampleProportionally(rows []assign.Row, size int, seed int64) []assign.Row {
	total := len(rows)
	r := p.rng.Stream("sample", seed)

	byStratum := make(map[int64][]int)
	for i, row := range rows {
		byStratum[row.Stratum.ID] = append(byStratum[row.Stratum.ID], i)
	}
	stratumIDs := make([]int64, 0, len(byStratum))
	for id := range byStratum {
		stratumIDs = append(stratumIDs, id)
	}
	sort.Slice(stratumIDs, func(a, b int) bool { return stratumIDs[a] < stratumIDs[b] })

	kept := make([]int, 0, size)
	for _, id := range stratumIDs {
		members := byStratum[id]
		n := len(members)
		target := int(math.Round(float64(size) * float64(n) / float64(total)))
		if target > n {
			target = n
		}
		for _, k := range r.Perm(n)[:target] {
			kept = append(kept, members[k])
		}
	}

	// Re-establish id-sorted order over the surviving rows.
	sort.Ints(kept)
	out := make([]assign.Row, len(kept))
	for i, k := range kept {
		out[i] = rows[k]
	}
	return out
}
