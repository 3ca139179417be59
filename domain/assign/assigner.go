package assign

import (
	"math/rand"
	"sort"
)

// PermutationAssigner labels every row with a treatment arm using one random
// block permutation per lcm-sized group. Strata are padded with placeholder
// slots up to a multiple of the block size, so no per-stratum special casing
// is needed: a stratum of size n gets floor(n/lcm) exact blocks plus one
// partially real block whose permutation covers the misfits.
type PermutationAssigner struct {
	spec *TreatmentSpec
}

// NewPermutationAssigner creates an assigner for the given treatment spec.
func NewPermutationAssigner(spec *TreatmentSpec) *PermutationAssigner {
	return &PermutationAssigner{spec: spec}
}

// Assign returns one assignment per input row. Rows with a null stratum
// (misfits under the "none" strategy) come back with a null treatment, at the
// end of the output. The assigner consumes rng deterministically: identical
// (rows, rng state) always produce identical assignments. It performs no
// validation; upstream preparation has already rejected malformed input.
func (a *PermutationAssigner) Assign(rows []Row, rng *rand.Rand) []Assignment {
	lcm := a.spec.LCMDenominator
	mask := a.spec.TreatMask

	assignable := make([]Row, 0, len(rows))
	var unassigned []Row
	for _, r := range rows {
		if r.Stratum.Valid {
			assignable = append(assignable, r)
		} else {
			unassigned = append(unassigned, r)
		}
	}

	// Group rows by stratum; stability keeps the caller's within-stratum
	// order, which the rng consumption below depends on.
	sort.SliceStable(assignable, func(i, j int) bool {
		return assignable[i].Stratum.ID < assignable[j].Stratum.ID
	})

	// Lay out slots: each stratum's rows followed by enough placeholder
	// slots to round it up to a multiple of the block size. A slot holds an
	// index into assignable, or -1 for a placeholder.
	slots := make([]int, 0, len(assignable)+lcm)
	for i := 0; i < len(assignable); {
		j := i
		for j < len(assignable) && assignable[j].Stratum.ID == assignable[i].Stratum.ID {
			slots = append(slots, j)
			j++
		}
		pad := (lcm - (j-i)%lcm) % lcm
		for p := 0; p < pad; p++ {
			slots = append(slots, -1)
		}
		i = j
	}

	// One batched draw of uniforms, one value per padded slot. Each block of
	// lcm draws is argsorted into an independent uniform permutation.
	draws := make([]float64, len(slots))
	for i := range draws {
		draws[i] = rng.Float64()
	}

	out := make([]Assignment, 0, len(rows))
	perm := make([]int, lcm)
	for start := 0; start < len(slots); start += lcm {
		for i := range perm {
			perm[i] = i
		}
		block := draws[start : start+lcm]
		sort.SliceStable(perm, func(x, y int) bool { return block[perm[x]] < block[perm[y]] })

		for j := 0; j < lcm; j++ {
			idx := slots[start+j]
			if idx < 0 {
				continue
			}
			r := assignable[idx]
			out = append(out, Assignment{
				ID:      r.ID,
				Stratum: r.Stratum,
				Treat:   Treatment{ID: mask[perm[j]], Valid: true},
			})
		}
	}

	for _, r := range unassigned {
		out = append(out, Assignment{ID: r.ID, Stratum: r.Stratum})
	}
	return out
}
