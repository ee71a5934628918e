// Package source reads tabular claim exports into an in-memory table.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Veraticus/mileage-audit/internal/common"
)

// Format names a supported export format.
type Format string

// Supported formats.
const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is a header row plus data rows, exactly as read from the export.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// Reader reads an export file into a Table.
type Reader interface {
	Read(ctx context.Context, path string) (*Table, error)
}

// Options selects and configures a reader.
type Options struct {
	Format    Format `mapstructure:"format" validate:"omitempty,oneof=auto csv xlsx"`
	Sheet     string `mapstructure:"sheet"`
	Delimiter string `mapstructure:"delimiter" validate:"omitempty,len=1"`
}

// DetectFormat resolves FormatAuto from the file extension.
func DetectFormat(path string, format Format) (Format, error) {
	if format != "" && format != FormatAuto {
		return format, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format from %q", common.ErrUnsupportedFormat, filepath.Base(path))
	}
}

// NewReader returns the reader for opts and path.
func NewReader(path string, opts Options) (Reader, error) {
	format, err := DetectFormat(path, opts.Format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		comma := ','
		if opts.Delimiter != "" {
			comma = []rune(opts.Delimiter)[0]
		} else if strings.EqualFold(filepath.Ext(path), ".tsv") {
			comma = '\t'
		}
		return &CSVReader{Comma: comma}, nil
	case FormatXLSX:
		return &XLSXReader{Sheet: opts.Sheet}, nil
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
}

// Load reads path with the reader selected by opts.
func Load(ctx context.Context, path string, opts Options) (*Table, error) {
	reader, err := NewReader(path, opts)
	if err != nil {
		return nil, err
	}

	table, err := reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Loaded export",
		"source", filepath.Base(path),
		"columns", len(table.Header),
		"rows", len(table.Rows))

	return table, nil
}

// newTable splits raw rows into header and data, dropping rows whose cells
// are all blank.
func newTable(path string, raw [][]string) (*Table, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), common.ErrNoHeader)
	}

	rows := make([][]string, 0, len(raw)-1)
	for _, row := range raw[1:] {
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{
		Source: path,
		Header: raw[0],
		Rows:   rows,
	}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
