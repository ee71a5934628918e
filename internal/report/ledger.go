package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// RunStore records finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error
}

// LedgerSink records the run and every scored row in a RunStore.
type LedgerSink struct {
	Store RunStore
}

// Name implements Sink.
func (s *LedgerSink) Name() string {
	return "ledger"
}

// Write implements Sink.
func (s *LedgerSink) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	if err := s.Store.SaveRun(ctx, run, rows); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RunRecorder turns a finished run into metrics and persists them.
type RunRecorder interface {
	RecordRun(run model.Run, finished time.Time)
	WriteTextfile(path string) error
}

// MetricsSink records run metrics and writes them to a textfile.
type MetricsSink struct {
	Recorder RunRecorder
	Path     string
}

// Name implements Sink.
func (s *MetricsSink) Name() string {
	return "metrics"
}

// Target implements FileSink.
func (s *MetricsSink) Target() string {
	return s.Path
}

// Write implements Sink.
func (s *MetricsSink) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	return s.WriteFile(ctx, s.Path, run, rows)
}

// WriteFile implements FileSink.
func (s *MetricsSink) WriteFile(_ context.Context, path string, run model.Run, _ []model.ScoredAggregate) error {
	s.Recorder.RecordRun(run, time.Now())
	return s.Recorder.WriteTextfile(path)
}
