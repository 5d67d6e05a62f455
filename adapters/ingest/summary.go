package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// WriteSummaryXLSX renders an analysis summary as a two-column workbook,
// one flattened field per row. The summary may be the typed result of a
// fresh run or the generic map read back from storage; both go through
// JSON first so the sheet matches what the API returns.
func WriteSummaryXLSX(w io.Writer, kind string, summary any) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	f.SetCellValue(sheet, "A1", "field")
	f.SetCellValue(sheet, "B1", "value")
	f.SetColWidth(sheet, "A", "A", 40)
	f.SetColWidth(sheet, "B", "B", 24)

	f.SetCellValue(sheet, "A2", "kind")
	f.SetCellValue(sheet, "B2", kind)
	writeSummaryRows(f, sheet, "", tree, 3)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func writeSummaryRows(f *excelize.File, sheet, path string, value any, row int) int {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			row = writeSummaryRows(f, sheet, child, v[k], row)
		}
	case []any:
		for i, item := range v {
			row = writeSummaryRows(f, sheet, fmt.Sprintf("%s[%d]", path, i), item, row)
		}
	case nil:
		f.SetCellValue(sheet, "A"+strconv.Itoa(row), path)
		row++
	default:
		f.SetCellValue(sheet, "A"+strconv.Itoa(row), path)
		f.SetCellValue(sheet, "B"+strconv.Itoa(row), v)
		row++
	}
	return row
}
