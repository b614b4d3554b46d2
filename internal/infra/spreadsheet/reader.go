// Package spreadsheet reads import scans and writes roster workbooks with excelize.
package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"school_admin/internal/app"
)

// ReadImportRows returns the data rows of the active sheet, header excluded.
// Rows are padded to the header width so blank trailing cells read as empty.
func ReadImportRows(r io.Reader) ([]app.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	width := len(rows[0])
	out := make([]app.RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		n := len(cells)
		if n < width {
			n = width
		}
		row := make(app.RawRow, n)
		for i, v := range cells {
			row[i] = v
		}
		out = append(out, row)
	}
	return out, nil
}
