package report

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// Workbook sheet names.
const (
	SheetAnomalies = "Anomalies"
	SheetScored    = "Scored"
)

// XLSXSink writes a workbook with the anomalous rows on one sheet and every
// scored row on another.
type XLSXSink struct {
	Path string
}

// Name implements Sink.
func (s *XLSXSink) Name() string {
	return "xlsx"
}

// Target implements FileSink.
func (s *XLSXSink) Target() string {
	return s.Path
}

// Write implements Sink.
func (s *XLSXSink) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	return s.WriteFile(ctx, s.Path, run, rows)
}

// WriteFile implements FileSink. The workbook is streamed rather than saved
// by name so path need not end in .xlsx.
func (s *XLSXSink) WriteFile(_ context.Context, path string, _ model.Run, rows []model.ScoredAggregate) (err error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetAnomalies); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetScored); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := writeSheet(f, SheetAnomalies, header, model.Anomalies(rows)); err != nil {
		return err
	}
	if err := writeSheet(f, SheetScored, header, rows); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, rows []model.ScoredAggregate) error {
	cells := make([]any, len(Columns))
	for i, name := range Columns {
		cells[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.ClaimID,
			row.EmployeeID,
			row.ElementCount,
			row.PaidMiles,
			row.TotalMiles,
			row.CommuteMiles,
			row.Score,
			int(row.Label),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze %s header: %w", sheet, err)
	}
	return nil
}
