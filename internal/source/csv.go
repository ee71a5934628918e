package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVReader reads delimited text exports.
type CSVReader struct {
	Comma rune
}

// Read implements Reader.
func (r *CSVReader) Read(_ context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	raw, err := r.readAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return newTable(path, raw)
}

func (r *CSVReader) readAll(in io.Reader) ([][]string, error) {
	reader := csv.NewReader(in)
	if r.Comma != 0 {
		reader.Comma = r.Comma
	}
	// Exports are ragged: trailing empty cells are often omitted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}
