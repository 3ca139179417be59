package assign

import (
	"math"
	"math/big"

	"gostrat/domain/core"
)

// maxDenominator bounds the rational reduction of each probability, so
// truncated decimals like 0.142857 still reduce to small denominators (7,
// not 1000000).
const maxDenominator = 10_000

// maxBlockSize bounds the LCM of the probability denominators. Past this the
// treat mask could not be materialized anyway.
const maxBlockSize = math.MaxInt32

const probSumTolerance = 1e-9

// TreatmentSpec holds the validated treatment configuration and the values
// derived from it: the LCM of the probability denominators (the smallest
// group size at which the target proportions are exact integer counts) and
// the treat mask (one block-sized multiset of arm labels realizing them).
type TreatmentSpec struct {
	TreatmentIDs   []int64
	Probs          []float64
	LCMDenominator int
	TreatMask      []int64
}

// NewTreatmentSpec validates the arm count and probabilities and computes the
// derived block size and mask. A nil probs defaults to uniform assignment.
func NewTreatmentSpec(treats int, probs []float64) (*TreatmentSpec, error) {
	if treats < 1 {
		return nil, core.NewInvalidProbabilitiesError("number of treatments must be positive")
	}

	ids := make([]int64, treats)
	for i := range ids {
		ids[i] = int64(i)
	}

	if probs == nil {
		probs = make([]float64, treats)
		for i := range probs {
			probs[i] = 1 / float64(treats)
		}
	} else {
		probs = append([]float64(nil), probs...)
		if len(probs) != treats {
			return nil, core.NewInvalidProbabilitiesError("the number of probabilities must match the number of treatments")
		}
		sum := 0.0
		for _, p := range probs {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return nil, core.NewInvalidProbabilitiesError("probabilities must be finite")
			}
			if p < 0 {
				return nil, core.NewInvalidProbabilitiesError("probabilities must be non-negative")
			}
			sum += p
		}
		if math.Abs(sum-1) > probSumTolerance {
			return nil, core.NewInvalidProbabilitiesError("the probabilities must add up to 1")
		}
	}

	lcm, err := lcmProbDenominators(probs)
	if err != nil {
		return nil, err
	}

	mask := make([]int64, 0, lcm)
	for i, p := range probs {
		count := int(math.Round(p * float64(lcm)))
		for c := 0; c < count; c++ {
			mask = append(mask, ids[i])
		}
	}

	return &TreatmentSpec{
		TreatmentIDs:   ids,
		Probs:          probs,
		LCMDenominator: lcm,
		TreatMask:      mask,
	}, nil
}

// lcmProbDenominators reduces every probability to a bounded-denominator
// fraction and returns the least common multiple of the denominators.
func lcmProbDenominators(probs []float64) (int, error) {
	lcm := int64(1)
	for _, p := range probs {
		den := limitDenominator(p, maxDenominator)
		g := gcd(lcm, den)
		lcm = lcm / g * den
		if lcm > maxBlockSize {
			return 0, core.NewInvalidProbabilitiesError("probabilities reduce to an unrepresentable block size")
		}
	}
	return int(lcm), nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// limitDenominator returns the denominator of the best rational approximation
// of x with denominator at most maxDen, via the continued-fraction expansion
// of the exact binary fraction underlying x.
func limitDenominator(x float64, maxDen int64) int64 {
	exact := new(big.Rat).SetFloat64(x)
	if exact == nil {
		return 1
	}
	if exact.Denom().IsInt64() && exact.Denom().Int64() <= maxDen {
		return exact.Denom().Int64()
	}

	limit := big.NewInt(maxDen)
	n := new(big.Int).Abs(exact.Num())
	d := new(big.Int).Set(exact.Denom())

	p0, q0 := big.NewInt(0), big.NewInt(1)
	p1, q1 := big.NewInt(1), big.NewInt(0)
	a, rem, q2 := new(big.Int), new(big.Int), new(big.Int)
	for {
		a.QuoRem(n, d, rem)
		q2.Add(q0, new(big.Int).Mul(a, q1))
		if q2.Cmp(limit) > 0 {
			break
		}
		p2 := new(big.Int).Add(p0, new(big.Int).Mul(a, p1))
		p0, q0, p1, q1 = p1, q1, p2, new(big.Int).Set(q2)
		n, d = d, new(big.Int).Set(rem)
	}

	// Two candidate convergents bracket the target; keep the closer one,
	// preferring the upper convergent on a tie (CPython semantics).
	k := new(big.Int).Div(new(big.Int).Sub(limit, q0), q1)
	bound1 := new(big.Rat).SetFrac(
		new(big.Int).Add(p0, new(big.Int).Mul(k, p1)),
		new(big.Int).Add(q0, new(big.Int).Mul(k, q1)),
	)
	bound2 := new(big.Rat).SetFrac(p1, q1)

	abs := new(big.Rat).Abs(exact)
	d1 := new(big.Rat).Abs(new(big.Rat).Sub(bound1, abs))
	d2 := new(big.Rat).Abs(new(big.Rat).Sub(bound2, abs))
	if d2.Cmp(d1) <= 0 {
		return bound2.Denom().Int64()
	}
	return bound1.Denom().Int64()
}
