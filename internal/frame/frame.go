// Package frame provides a small column-oriented table used to move tabular
// data between readers, the preparator and the assignment pipeline.
package frame

import (
	"fmt"

	"gostrat/domain/core"
)

// Value is a scalar cell: int64, float64, string, bool or uuid.UUID.
type Value = any

// Frame is a named-column table of scalar cells. Columns keep their insertion
// order so output column ordering is deterministic.
type Frame struct {
	cols  []string
	data  map[string][]Value
	nrows int
}

// New creates an empty frame with the given column names.
func New(cols ...string) *Frame {
	f := &Frame{
		cols: append([]string(nil), cols...),
		data: make(map[string][]Value, len(cols)),
	}
	for _, c := range f.cols {
		f.data[c] = nil
	}
	return f
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.nrows }

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the named column's cells.
func (f *Frame) Column(name string) ([]Value, error) {
	col, ok := f.data[name]
	if !ok {
		return nil, core.NewMissingColumnError(name)
	}
	return col, nil
}

// Cell returns the value at (row, col).
func (f *Frame) Cell(row int, name string) (Value, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= f.nrows {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, f.nrows)
	}
	return col[row], nil
}

// AppendRow appends one row; values must match the column count and order.
func (f *Frame) AppendRow(vals ...Value) error {
	if len(vals) != len(f.cols) {
		return fmt.Errorf("expected %d values, got %d", len(f.cols), len(vals))
	}
	for i, c := range f.cols {
		f.data[c] = append(f.data[c], vals[i])
	}
	f.nrows++
	return nil
}

// AppendColumn adds a full column to the frame.
func (f *Frame) AppendColumn(name string, cells []Value) error {
	if f.nrows != 0 && len(cells) != f.nrows {
		return fmt.Errorf("column %q has %d cells, frame has %d rows", name, len(cells), f.nrows)
	}
	if f.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	f.cols = append(f.cols, name)
	f.data[name] = cells
	if f.nrows == 0 {
		f.nrows = len(cells)
	}
	return nil
}
