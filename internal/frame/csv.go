package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReadCSV parses CSV data with a header row into a frame. Cells are coerced
// to the narrowest type that fits a full column: int64, then float64, then
// string. A column with mixed numeric and non-numeric cells stays string.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	header := records[0]
	body := records[1:]

	cols := make([][]Value, len(header))
	for j := range header {
		raw := make([]string, len(body))
		for i, rec := range body {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		cols[j] = CoerceColumn(raw)
	}

	f := New(header...)
	for j, name := range header {
		f.data[name] = cols[j]
	}
	f.nrows = len(body)
	return f, nil
}

// CoerceColumn converts raw string cells to the narrowest type that fits the
// whole column: int64, then float64, then string. Picking one type per column
// keeps later comparisons homogeneous.
func CoerceColumn(raw []string) []Value {
	allInt := true
	allFloat := true
	for _, s := range raw {
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
	}

	out := make([]Value, len(raw))
	switch {
	case allInt:
		for i, s := range raw {
			v, _ := strconv.ParseInt(s, 10, 64)
			out[i] = v
		}
	case allFloat:
		for i, s := range raw {
			v, _ := strconv.ParseFloat(s, 64)
			out[i] = v
		}
	default:
		for i, s := range raw {
			out[i] = s
		}
	}
	return out
}

// WriteCSV writes the frame with a header row. Nil cells become empty fields.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	rec := make([]string, len(f.cols))
	for i := 0; i < f.nrows; i++ {
		for j, c := range f.cols {
			cell := f.data[c][i]
			if cell == nil {
				rec[j] = ""
				continue
			}
			rec[j] = formatCell(cell)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v Value) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
