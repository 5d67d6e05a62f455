package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"statlab/domain/core"
)

// Table holds the parsed cell data of a dataset. Cells are stored as raw
// strings in row-major order; the empty string marks a missing value.
type Table struct {
	Columns []Column   `json:"columns"`
	Cells   [][]string `json:"cells"`
}

// datetime layouts accepted during inference and parsing, tried in order
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns the named column descriptor.
func (t *Table) Column(name string) (Column, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", core.ErrColumnNotFound, name)
	}
	return t.Columns[idx], nil
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Cells)
}

// NumericColumn returns the named column as floats, one per row,
// with NaN for missing or unparseable cells.
func (t *Table) NumericColumn(name string) ([]float64, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, name)
	}
	if t.Columns[idx].Type != TypeNumeric {
		return nil, core.NewColumnTypeError(name, "numeric", string(t.Columns[idx].Type))
	}
	out := make([]float64, len(t.Cells))
	for i, row := range t.Cells {
		v, ok := ParseNumeric(row[idx])
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out, nil
}

// CategoricalColumn returns the named column as strings, one per row.
// Any column type is accepted; numeric and datetime values keep their
// raw cell representation.
func (t *Table) CategoricalColumn(name string) ([]string, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, name)
	}
	out := make([]string, len(t.Cells))
	for i, row := range t.Cells {
		out[i] = strings.TrimSpace(row[idx])
	}
	return out, nil
}

// TimeColumn returns the named column as timestamps. Missing or
// unparseable cells yield the zero time.
func (t *Table) TimeColumn(name string) ([]time.Time, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, name)
	}
	if t.Columns[idx].Type != TypeDatetime {
		return nil, core.NewColumnTypeError(name, "datetime", string(t.Columns[idx].Type))
	}
	out := make([]time.Time, len(t.Cells))
	for i, row := range t.Cells {
		if ts, ok := ParseDatetime(row[idx]); ok {
			out[i] = ts
		}
	}
	return out, nil
}

// CompleteRows extracts the named numeric columns, dropping any row where
// at least one of them is missing. The returned matrix is row-major with
// one entry per kept row; kept maps positions back to original row indices.
func (t *Table) CompleteRows(names []string) (rows [][]float64, kept []int, err error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, err := t.NumericColumn(name)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = col
	}
	for r := 0; r < t.RowCount(); r++ {
		ok := true
		for _, col := range cols {
			if math.IsNaN(col[r]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		row := make([]float64, len(cols))
		for c, col := range cols {
			row[c] = col[r]
		}
		rows = append(rows, row)
		kept = append(kept, r)
	}
	return rows, kept, nil
}

// NumericColumnNames lists all numeric columns in table order.
func (t *Table) NumericColumnNames() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Type == TypeNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// CategoricalColumnNames lists all categorical columns in table order.
func (t *Table) CategoricalColumnNames() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Type == TypeCategorical {
			out = append(out, c.Name)
		}
	}
	return out
}

// MissingRate returns the overall share of missing cells.
func (t *Table) MissingRate() float64 {
	if len(t.Cells) == 0 || len(t.Columns) == 0 {
		return 0
	}
	missing := 0
	for _, row := range t.Cells {
		for _, cell := range row {
			if strings.TrimSpace(cell) == "" {
				missing++
			}
		}
	}
	return float64(missing) / float64(len(t.Cells)*len(t.Columns))
}

// ParseNumeric parses a cell as a float, tolerating surrounding space
// and comma thousand separators.
func ParseNumeric(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDatetime parses a cell against the accepted layouts.
func ParseDatetime(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
