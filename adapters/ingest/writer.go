package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"statlab/domain/dataset"
)

// WriteCSV streams the table back out as CSV, header first.
func WriteCSV(w io.Writer, tbl *dataset.Table) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(tbl.Columns))
	for i, col := range tbl.Columns {
		header[i] = col.Name
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range tbl.Cells {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX renders the table as a single-sheet Excel workbook.
func WriteXLSX(w io.Writer, tbl *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, col := range tbl.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("sheet coordinates: %w", err)
		}
		f.SetCellValue(sheet, cell, col.Name)
		if name, err := excelize.ColumnNumberToName(i + 1); err == nil {
			f.SetColWidth(sheet, name, name, 16)
		}
	}
	for r, row := range tbl.Cells {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("sheet coordinates: %w", err)
			}
			// Keep numbers numeric in the workbook.
			if num, ok := dataset.ParseNumeric(value); ok {
				f.SetCellValue(sheet, cell, num)
			} else {
				f.SetCellValue(sheet, cell, value)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
