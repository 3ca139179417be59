package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnitIDNormalizesIntegers(t *testing.T) {
	a, err := NewUnitID(7)
	require.NoError(t, err)
	b, err := NewUnitID(int64(7))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(7), a.Value())
}

func TestNewUnitIDRejectsUnsupportedTypes(t *testing.T) {
	_, err := NewUnitID([]string{"not", "scalar"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIdentifierColumn)
}

func TestUnitIDPreservesLargeIntegers(t *testing.T) {
	// 2^53 and 2^53+1 are indistinguishable as float64; the carrier must
	// keep them apart.
	a, err := NewUnitID(int64(1 << 53))
	require.NoError(t, err)
	b, err := NewUnitID(int64(1<<53 + 1))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, -1, CompareUnitIDs(a, b))
	assert.Equal(t, 1, CompareUnitIDs(b, a))
}

func TestCompareUnitIDsWithinTypes(t *testing.T) {
	cases := []struct {
		lo, hi any
	}{
		{int64(1), int64(2)},
		{1.5, 2.5},
		{"alpha", "beta"},
		{false, true},
		{uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002")},
	}
	for _, c := range cases {
		lo, err := NewUnitID(c.lo)
		require.NoError(t, err)
		hi, err := NewUnitID(c.hi)
		require.NoError(t, err)

		assert.Negative(t, CompareUnitIDs(lo, hi), "%v < %v", c.lo, c.hi)
		assert.Positive(t, CompareUnitIDs(hi, lo))
		assert.Zero(t, CompareUnitIDs(lo, lo))
	}
}

func TestCompareUnitIDsAcrossTypesIsStable(t *testing.T) {
	n, err := NewUnitID(int64(5))
	require.NoError(t, err)
	s, err := NewUnitID("5")
	require.NoError(t, err)

	assert.Negative(t, CompareUnitIDs(n, s), "numbers order before strings")
	assert.Positive(t, CompareUnitIDs(s, n))
}

func TestUnitIDUsableAsMapKey(t *testing.T) {
	seen := make(map[UnitID]struct{})
	for i := 0; i < 100; i++ {
		id, err := NewUnitID(int64(i))
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
