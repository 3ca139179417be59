package core

import (
	"fmt"

	"github.com/google/uuid"
)

// UnitID is an opaque carrier for a unit identifier. It preserves the exact
// dynamic type of the original value (int64, float64, string, bool or
// uuid.UUID) through the whole pipeline, so integer identifiers near 2^53
// never pass through a floating-point representation.
type UnitID struct {
	v any
}

// NewUnitID wraps a scalar identifier value. Integer kinds are normalized to
// int64; everything else keeps its dynamic type.
func NewUnitID(v any) (UnitID, error) {
	switch x := v.(type) {
	case int:
		return UnitID{int64(x)}, nil
	case int32:
		return UnitID{int64(x)}, nil
	case int64, float64, string, bool, uuid.UUID:
		return UnitID{x}, nil
	default:
		return UnitID{}, fmt.Errorf("%w: unsupported identifier type %T", ErrInvalidIdentifierColumn, v)
	}
}

// OrdinalUnitID builds an identifier from a row position, used when the caller
// supplies no identifier column.
func OrdinalUnitID(pos int) UnitID {
	return UnitID{int64(pos)}
}

// Value returns the wrapped identifier with its original dynamic type.
func (id UnitID) Value() any { return id.v }

func (id UnitID) String() string {
	return fmt.Sprintf("%v", id.v)
}

// typeRank orders identifier kinds so heterogeneous columns still sort
// deterministically.
func typeRank(v any) int {
	switch v.(type) {
	case int64:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	case uuid.UUID:
		return 4
	default:
		return 5
	}
}

// CompareUnitIDs imposes a total order on identifiers: by type kind first,
// then by value. The order itself is arbitrary; it only has to be stable so
// that preparation can sort rows by identity independent of input row order.
func CompareUnitIDs(a, b UnitID) int {
	ra, rb := typeRank(a.v), typeRank(b.v)
	if ra != rb {
		return ra - rb
	}
	switch x := a.v.(type) {
	case int64:
		y := b.v.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case float64:
		y := b.v.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		y := b.v.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case bool:
		y := b.v.(bool)
		switch {
		case !x && y:
			return -1
		case x && !y:
			return 1
		}
	case uuid.UUID:
		y := b.v.(uuid.UUID)
		for i := range x {
			if x[i] != y[i] {
				return int(x[i]) - int(y[i])
			}
		}
	}
	return 0
}

// CompareScalars orders arbitrary stratification-cell values using the same
// total order as identifiers. Used by group numbering.
func CompareScalars(a, b any) int {
	ida := UnitID{a}
	idb := UnitID{b}
	return CompareUnitIDs(ida, idb)
}
