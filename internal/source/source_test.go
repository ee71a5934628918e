package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/mileage-audit/internal/common"
)

var fixture = [][]string{
	{"Timesheet ID", "Personal Reference:Timesheet", "Miles Claimed:Timesheet"},
	{"C1", "E1", "10"},
	{"C1", "E1", "10.5"},
	{"C2", "E2", ""},
}

func writeCSV(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		format  Format
		want    Format
		wantErr bool
	}{
		{name: "csv extension", path: "a.CSV", want: FormatCSV},
		{name: "xlsx extension", path: "a.xlsx", want: FormatXLSX},
		{name: "explicit wins", path: "a.dat", format: FormatCSV, want: FormatCSV},
		{name: "auto with unknown extension", path: "a.dat", format: FormatAuto, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.path, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVReader(t *testing.T) {
	path := writeCSV(t, "export.csv",
		"Timesheet ID,Personal Reference:Timesheet,Miles Claimed:Timesheet\n"+
			"C1,E1,10\n"+
			"C1,E1,10.5\n"+
			",,\n"+
			"C2,E2\n")

	table, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, fixture[0], table.Header)
	require.Len(t, table.Rows, 3, "blank row is dropped")
	assert.Equal(t, []string{"C2", "E2"}, table.Rows[2], "ragged rows are kept short")
}

func TestCSVReader_Delimiter(t *testing.T) {
	path := writeCSV(t, "export.txt", "a;b\n1;2\n")

	table, err := Load(context.Background(), path, Options{Delimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, table.Rows)
}

func TestCSVReader_Empty(t *testing.T) {
	path := writeCSV(t, "empty.csv", "")

	_, err := Load(context.Background(), path, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoHeader)
}

func TestXLSXReader_MatchesCSV(t *testing.T) {
	xlsxPath := writeXLSX(t, fixture)
	csvPath := writeCSV(t, "export.csv",
		"Timesheet ID,Personal Reference:Timesheet,Miles Claimed:Timesheet\nC1,E1,10\nC1,E1,10.5\nC2,E2,\n")

	fromXLSX, err := Load(context.Background(), xlsxPath, Options{})
	require.NoError(t, err)
	fromCSV, err := Load(context.Background(), csvPath, Options{})
	require.NoError(t, err)

	assert.Equal(t, fromCSV.Header, fromXLSX.Header)
	require.Len(t, fromXLSX.Rows, len(fromCSV.Rows))
	for i := range fromCSV.Rows {
		// excelize trims trailing empty cells.
		assert.Equal(t, fromCSV.Rows[i][:len(fromXLSX.Rows[i])], fromXLSX.Rows[i])
	}
}

func TestXLSXReader_MissingSheet(t *testing.T) {
	path := writeXLSX(t, fixture)

	_, err := Load(context.Background(), path, Options{Sheet: "Nope"})
	require.Error(t, err)
}
