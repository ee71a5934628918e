package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// CSVSink writes the anomalous rows to a CSV file.
type CSVSink struct {
	Path string
}

// Name implements Sink.
func (s *CSVSink) Name() string {
	return "csv"
}

// Target implements FileSink.
func (s *CSVSink) Target() string {
	return s.Path
}

// Write implements Sink.
func (s *CSVSink) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	return s.WriteFile(ctx, s.Path, run, rows)
}

// WriteFile implements FileSink. A run with no anomalies still gets a file
// with a header row.
func (s *CSVSink) WriteFile(_ context.Context, path string, _ model.Run, rows []model.ScoredAggregate) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range model.Anomalies(rows) {
		if err := w.Write(record(row)); err != nil {
			return fmt.Errorf("failed to write claim %s: %w", row.Key(), err)
		}
	}
	w.Flush()
	return w.Error()
}
