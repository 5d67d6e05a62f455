package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"statlab/domain/dataset"
)

// MaxRows caps the number of data rows accepted from one upload.
const MaxRows = 200_000

// Read parses an uploaded CSV or XLSX stream into a typed table. The
// filename extension selects the format; anything else is rejected.
func Read(filename string, r io.Reader) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q: expected .csv or .xlsx", filepath.Ext(filename))
	}
}

// ReadCSV parses CSV data into a typed table. The first record is the
// header; column types are inferred from the remaining rows.
func ReadCSV(r io.Reader) (*dataset.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are rejected by BuildTable with row context

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	header, rows, err := splitHeader(records)
	if err != nil {
		return nil, err
	}
	return dataset.BuildTable(header, rows)
}

// ReadXLSX parses the first sheet of an Excel workbook into a typed table.
func ReadXLSX(r io.Reader) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("sheet %q must have a header row and at least one data row", sheets[0])
	}

	header, rows, err := splitHeader(records)
	if err != nil {
		return nil, err
	}
	// GetRows drops trailing empty cells; pad so every row is rectangular.
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row
	}
	return dataset.BuildTable(header, rows)
}

func splitHeader(records [][]string) ([]string, [][]string, error) {
	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		if seen[h] {
			return nil, nil, fmt.Errorf("duplicate column header %q", h)
		}
		seen[h] = true
		header[i] = h
	}

	rows := records[1:]
	if len(rows) > MaxRows {
		return nil, nil, fmt.Errorf("file has %d data rows, the limit is %d", len(rows), MaxRows)
	}
	for i, row := range rows {
		for j, cell := range row {
			rows[i][j] = strings.TrimSpace(cell)
		}
	}
	return header, rows, nil
}
