package source

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads workbook exports. Cells are read as displayed, so date
// columns must be formatted day/month/year in the workbook.
type XLSXReader struct {
	Sheet string
}

// Read implements Reader.
func (r *XLSXReader) Read(_ context.Context, path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return newTable(path, raw)
}
