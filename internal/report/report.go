// Package report summarizes how closely a finished assignment hit its target
// proportions, overall and per stratum.
package report

import (
	"fmt"
	"strings"

	"gostrat/domain/assign"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ArmBalance is the realized share of one treatment arm over assigned rows.
type ArmBalance struct {
	Arm    int64
	Count  int
	Share  float64
	Target float64
}

// BalanceReport aggregates assignment balance diagnostics.
type BalanceReport struct {
	Total      int
	Assigned   int
	Unassigned int
	Strata     int
	BlockSize  int
	Arms       []ArmBalance

	// Per-stratum absolute deviations |count - size*target|, summarized
	// across all (stratum, arm) pairs. Each is strictly below BlockSize by
	// construction.
	MaxAbsDeviation  float64
	MeanAbsDeviation float64

	// Chi-square goodness of fit of overall arm counts against the targets.
	ChiSquare float64
	PValue    float64
}

// Build computes balance diagnostics from a finished assignment.
func Build(assignments []assign.Assignment, spec *assign.TreatmentSpec) (*BalanceReport, error) {
	r := &BalanceReport{
		Total:     len(assignments),
		Strata:    0,
		BlockSize: spec.LCMDenominator,
	}

	armCounts := make(map[int64]int)
	type key struct{ stratum, arm int64 }
	cellCounts := make(map[key]int)
	stratumSizes := make(map[int64]int)

	for _, a := range assignments {
		if !a.Treat.Valid {
			r.Unassigned++
			continue
		}
		r.Assigned++
		armCounts[a.Treat.ID]++
		stratumSizes[a.Stratum.ID]++
		cellCounts[key{a.Stratum.ID, a.Treat.ID}]++
	}
	r.Strata = len(stratumSizes)

	for i, arm := range spec.TreatmentIDs {
		share := 0.0
		if r.Assigned > 0 {
			share = float64(armCounts[arm]) / float64(r.Assigned)
		}
		r.Arms = append(r.Arms, ArmBalance{
			Arm:    arm,
			Count:  armCounts[arm],
			Share:  share,
			Target: spec.Probs[i],
		})
	}

	deviations := make([]float64, 0, len(stratumSizes)*len(spec.TreatmentIDs))
	for stratum, size := range stratumSizes {
		for i, arm := range spec.TreatmentIDs {
			expected := float64(size) * spec.Probs[i]
			observed := float64(cellCounts[key{stratum, arm}])
			dev := observed - expected
			if dev < 0 {
				dev = -dev
			}
			deviations = append(deviations, dev)
		}
	}
	if len(deviations) > 0 {
		maxDev, err := stats.Max(deviations)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize deviations: %w", err)
		}
		meanDev, err := stats.Mean(deviations)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize deviations: %w", err)
		}
		r.MaxAbsDeviation = maxDev
		r.MeanAbsDeviation = meanDev
	}

	r.ChiSquare, r.PValue = goodnessOfFit(armCounts, spec, r.Assigned)
	return r, nil
}

// goodnessOfFit computes the chi-square statistic of the overall arm counts
// against the target proportions, skipping zero-probability arms.
func goodnessOfFit(armCounts map[int64]int, spec *assign.TreatmentSpec, assigned int) (chi2, p float64) {
	if assigned == 0 {
		return 0, 1
	}
	df := -1.0
	for i, arm := range spec.TreatmentIDs {
		expected := float64(assigned) * spec.Probs[i]
		if expected == 0 {
			continue
		}
		df++
		observed := float64(armCounts[arm])
		chi2 += (observed - expected) * (observed - expected) / expected
	}
	if df < 1 {
		return chi2, 1
	}
	dist := distuv.ChiSquared{K: df}
	return chi2, dist.Survival(chi2)
}

// Markdown renders the report as a markdown document.
func Markdown(r *BalanceReport) string {
	var b strings.Builder
	b.WriteString("# Assignment balance report\n\n")
	fmt.Fprintf(&b, "- Units: %d (%d assigned, %d unassigned)\n", r.Total, r.Assigned, r.Unassigned)
	fmt.Fprintf(&b, "- Strata: %d\n", r.Strata)
	fmt.Fprintf(&b, "- Block size (LCM of probability denominators): %d\n\n", r.BlockSize)

	b.WriteString("| Arm | Count | Share | Target |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, arm := range r.Arms {
		fmt.Fprintf(&b, "| %d | %d | %.4f | %.4f |\n", arm.Arm, arm.Count, arm.Share, arm.Target)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Per-stratum deviation from target counts: max %.2f, mean %.2f (bound: %d).\n\n",
		r.MaxAbsDeviation, r.MeanAbsDeviation, r.BlockSize)
	fmt.Fprintf(&b, "Chi-square goodness of fit: statistic %.4f, p-value %.4f.\n", r.ChiSquare, r.PValue)
	return b.String()
}
