package app

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostrat/adapters/prep"
	adapterrng "gostrat/adapters/rng"
	"gostrat/domain/assign"
	"gostrat/domain/core"
	"gostrat/internal/frame"
)

func newService() *AssignService {
	return NewAssignService(prep.NewDataPreparator(adapterrng.NewSeeded()), adapterrng.NewSeeded())
}

func twoStrataFrame(t *testing.T) *frame.Frame {
	t.Helper()
	// 5 units in stratum value 0, 4 units in stratum value 1.
	f := frame.New("id", "stratum")
	strata := []int64{0, 0, 0, 0, 0, 1, 1, 1, 1}
	for i, s := range strata {
		require.NoError(t, f.AppendRow(int64(i+1), s))
	}
	return f
}

func treatByID(result *AssignResult) map[string]assign.Treatment {
	out := make(map[string]assign.Treatment, len(result.Assignments))
	for _, a := range result.Assignments {
		out[a.ID.String()] = a.Treat
	}
	return out
}

func TestLiteralGlobalPoolScenario(t *testing.T) {
	// ids 1..9 over strata of sizes 5 and 4, two arms at 0.5/0.5 (block
	// size 2), seed 0, global pooling: stratum 0 contributes exactly one
	// misfit (5 mod 2), stratum 1 none, and both real strata split 2/2.
	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:           twoStrataFrame(t),
		StratumCols:    []string{"stratum"},
		Treats:         2,
		Probs:          []float64{0.5, 0.5},
		Seed:           0,
		IDCol:          "id",
		MisfitStrategy: "global",
	})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 9)
	assert.Equal(t, 2, result.StratumCount)

	counts := make(map[int64]map[int64]int)
	for _, a := range result.Assignments {
		require.True(t, a.Stratum.Valid)
		require.True(t, a.Treat.Valid)
		if counts[a.Stratum.ID] == nil {
			counts[a.Stratum.ID] = make(map[int64]int)
		}
		counts[a.Stratum.ID][a.Treat.ID]++
	}

	require.Len(t, counts[assign.SentinelStratum], 1)
	assert.Equal(t, map[int64]int{0: 2, 1: 2}, counts[0])
	assert.Equal(t, map[int64]int{0: 2, 1: 2}, counts[1])
}

func TestDeterminismAcrossCalls(t *testing.T) {
	req := AssignRequest{
		Data:        twoStrataFrame(t),
		StratumCols: []string{"stratum"},
		Treats:      2,
		Seed:        42,
		IDCol:       "id",
	}

	first, err := newService().Assign(context.Background(), req)
	require.NoError(t, err)
	second, err := newService().Assign(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Assignments, second.Assignments)
}

func TestRowOrderIndependence(t *testing.T) {
	// The same units presented in shuffled row order must land on the same
	// arms: assignment is keyed by identity, not position.
	build := func(order []int) *frame.Frame {
		strata := []int64{0, 0, 0, 0, 0, 1, 1, 1, 1}
		f := frame.New("id", "stratum")
		for _, i := range order {
			_ = f.AppendRow(int64(i+1), strata[i])
		}
		return f
	}

	straight := make([]int, 9)
	for i := range straight {
		straight[i] = i
	}
	shuffled := append([]int(nil), straight...)
	rand.New(rand.NewSource(99)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, strategy := range assign.MisfitStrategyNames() {
		req := AssignRequest{
			StratumCols:    []string{"stratum"},
			Treats:         2,
			Seed:           7,
			IDCol:          "id",
			MisfitStrategy: strategy,
		}

		req.Data = build(straight)
		a, err := newService().Assign(context.Background(), req)
		require.NoError(t, err)

		req.Data = build(shuffled)
		b, err := newService().Assign(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, treatByID(a), treatByID(b), "strategy %s", strategy)
	}
}

func TestIdentifierRoundTripLargeIntegers(t *testing.T) {
	// Adjacent large integers collapse if the id column ever passes through
	// float64; the output id set must equal the input set exactly.
	ids := []int64{103241243500726324, 103241243500726320, 1 << 53, 1<<53 + 1}
	f := frame.New("id", "stratum")
	require.NoError(t, f.AppendRow(ids[0], int64(0)))
	require.NoError(t, f.AppendRow(ids[1], int64(0)))
	require.NoError(t, f.AppendRow(ids[2], int64(1)))
	require.NoError(t, f.AppendRow(ids[3], int64(1)))

	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:        f,
		StratumCols: []string{"stratum"},
		Treats:      2,
		Probs:       []float64{0.5, 0.5},
		Seed:        1,
		IDCol:       "id",
	})
	require.NoError(t, err)

	got := make(map[int64]bool)
	for _, a := range result.Assignments {
		v, ok := a.ID.Value().(int64)
		require.True(t, ok, "id lost its integer representation: %T", a.ID.Value())
		got[v] = true
	}
	require.Len(t, got, len(ids))
	for _, id := range ids {
		assert.True(t, got[id], "id %d missing from output", id)
	}
}

func TestStratumIDCardinality(t *testing.T) {
	f := frame.New("site", "age_band")
	sites := []string{"a", "a", "b", "b", "c", "c", "c"}
	bands := []int64{0, 1, 0, 0, 1, 1, 1}
	for i := range sites {
		require.NoError(t, f.AppendRow(sites[i], bands[i]))
	}
	// Distinct (site, age_band) combos: (a,0) (a,1) (b,0) (c,1) = 4.

	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:        f,
		StratumCols: []string{"site", "age_band"},
		Treats:      2,
		Seed:        3,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.StratumCount)

	distinct := make(map[int64]bool)
	for _, a := range result.Assignments {
		distinct[a.Stratum.ID] = true
		assert.GreaterOrEqual(t, a.Stratum.ID, int64(0))
		assert.Less(t, a.Stratum.ID, int64(4))
	}
	assert.Len(t, distinct, 4)
}

func TestGlobalPoolAddsAtMostOneSentinelStratum(t *testing.T) {
	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:           twoStrataFrame(t),
		StratumCols:    []string{"stratum"},
		Treats:         2,
		Seed:           5,
		IDCol:          "id",
		MisfitStrategy: "global",
	})
	require.NoError(t, err)

	distinct := make(map[int64]bool)
	for _, a := range result.Assignments {
		distinct[a.Stratum.ID] = true
	}
	assert.Len(t, distinct, result.StratumCount+1)
	assert.True(t, distinct[assign.SentinelStratum])
}

func TestNoneStrategyLeavesMisfitsNull(t *testing.T) {
	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:           twoStrataFrame(t),
		StratumCols:    []string{"stratum"},
		Treats:         2,
		Seed:           5,
		IDCol:          "id",
		MisfitStrategy: "none",
	})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 9)

	var unassigned int
	for _, a := range result.Assignments {
		if !a.Treat.Valid {
			unassigned++
			assert.False(t, a.Stratum.Valid)
		}
	}
	assert.Equal(t, 1, unassigned)

	out := result.Frame()
	assert.Equal(t, []string{"id", "stratum_id", "treat"}, out.Columns())
	nullCells := 0
	col, err := out.Column("treat")
	require.NoError(t, err)
	for _, cell := range col {
		if cell == nil {
			nullCells++
		}
	}
	assert.Equal(t, 1, nullCells)
}

func TestProportionalSampling(t *testing.T) {
	f := frame.New("id", "stratum")
	for i := 0; i < 80; i++ {
		require.NoError(t, f.AppendRow(int64(i), int64(0)))
	}
	for i := 80; i < 120; i++ {
		require.NoError(t, f.AppendRow(int64(i), int64(1)))
	}

	size := 60
	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:        f,
		StratumCols: []string{"stratum"},
		Treats:      2,
		Seed:        11,
		IDCol:       "id",
		Size:        &size,
	})
	require.NoError(t, err)

	counts := make(map[int64]int)
	for _, a := range result.Assignments {
		counts[a.Stratum.ID]++
	}
	// Strata hold 2/3 and 1/3 of the rows; the sample keeps those shares.
	assert.Equal(t, 40, counts[0])
	assert.Equal(t, 20, counts[1])
}

func TestValidationErrors(t *testing.T) {
	valid := func() AssignRequest {
		return AssignRequest{
			Data:        twoStrataFrame(t),
			StratumCols: []string{"stratum"},
			Treats:      2,
			Seed:        1,
			IDCol:       "id",
		}
	}

	t.Run("empty input", func(t *testing.T) {
		req := valid()
		req.Data = frame.New("id", "stratum")
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrEmptyInput)
	})

	t.Run("single row", func(t *testing.T) {
		req := valid()
		f := frame.New("id", "stratum")
		require.NoError(t, f.AppendRow(int64(1), int64(0)))
		req.Data = f
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrInsufficientRows)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		req := valid()
		f := frame.New("id", "stratum")
		require.NoError(t, f.AppendRow(int64(1), int64(0)))
		require.NoError(t, f.AppendRow(int64(1), int64(0)))
		require.NoError(t, f.AppendRow(int64(2), int64(1)))
		req.Data = f
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)
	})

	t.Run("missing stratum column", func(t *testing.T) {
		req := valid()
		req.StratumCols = []string{"nope"}
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrMissingColumn)
	})

	t.Run("missing id column", func(t *testing.T) {
		req := valid()
		req.IDCol = "nope"
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrMissingColumn)
	})

	t.Run("oversized sample", func(t *testing.T) {
		req := valid()
		size := 100
		req.Size = &size
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrOversizedSample)
	})

	t.Run("bad probabilities", func(t *testing.T) {
		req := valid()
		req.Probs = []float64{0.1, 0.2}
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrInvalidProbabilities)
	})

	t.Run("bogus misfit strategy", func(t *testing.T) {
		req := valid()
		req.MisfitStrategy = "bogus"
		_, err := newService().Assign(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrInvalidMisfitStrategy)
	})
}

func TestOrdinalIdentifiersWhenNoIDCol(t *testing.T) {
	f := frame.New("stratum")
	for i := 0; i < 6; i++ {
		require.NoError(t, f.AppendRow(int64(i%2)))
	}

	result, err := newService().Assign(context.Background(), AssignRequest{
		Data:        f,
		StratumCols: []string{"stratum"},
		Treats:      2,
		Seed:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, "index", result.IDCol)
	require.Len(t, result.Assignments, 6)

	seen := make(map[int64]bool)
	for _, a := range result.Assignments {
		v, ok := a.ID.Value().(int64)
		require.True(t, ok)
		seen[v] = true
	}
	assert.Len(t, seen, 6)
}
