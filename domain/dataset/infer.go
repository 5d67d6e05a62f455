package dataset

import (
	"fmt"
	"strings"
)

// typeShareThreshold is the fraction of non-missing cells that must parse
// as a type before the column is classified as that type.
const typeShareThreshold = 0.9

// BuildTable assembles a Table from a header row and raw cell rows,
// inferring each column's type and missing statistics.
func BuildTable(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("header row is empty")
	}
	cells := make([][]string, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(header))
		}
		cells = append(cells, row)
	}

	columns := make([]Column, len(header))
	for c, name := range header {
		columns[c] = inferColumn(strings.TrimSpace(name), cells, c)
	}
	return &Table{Columns: columns, Cells: cells}, nil
}

// inferColumn classifies a single column by sampling every non-missing cell.
func inferColumn(name string, cells [][]string, idx int) Column {
	var present, numeric, datetime int
	unique := make(map[string]struct{})

	for _, row := range cells {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		present++
		unique[v] = struct{}{}
		if _, ok := ParseNumeric(v); ok {
			numeric++
		} else if _, ok := ParseDatetime(v); ok {
			datetime++
		}
	}

	col := Column{
		Name:        name,
		Type:        TypeCategorical,
		UniqueCount: len(unique),
	}
	if len(cells) > 0 {
		col.MissingRate = 1 - float64(present)/float64(len(cells))
	}
	if present == 0 {
		return col
	}
	if float64(numeric)/float64(present) >= typeShareThreshold {
		col.Type = TypeNumeric
	} else if float64(datetime)/float64(present) >= typeShareThreshold {
		col.Type = TypeDatetime
	}
	return col
}
