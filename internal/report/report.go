// Package report writes the outputs of a finished audit run: the anomaly
// report, an optional workbook and pair plot, the terminal summary and the
// run ledger entry.
package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// Columns is the header of every tabular report.
var Columns = []string{
	"claim_id",
	"employee_id",
	"element_count",
	"paid_miles",
	"total_miles",
	"commute_miles",
	"anomaly_score",
	"anomaly",
}

// Sink writes one output of a run. Sinks must not modify rows.
type Sink interface {
	Name() string
	Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error
}

// FileSink is a sink whose output is a single file at Target. Writer has it
// write to a temporary file beside the target instead, and moves that file
// into place only once every sink has succeeded.
type FileSink interface {
	Sink
	Target() string
	WriteFile(ctx context.Context, path string, run model.Run, rows []model.ScoredAggregate) error
}

// Writer fans a finished run out to its sinks concurrently.
type Writer struct {
	sinks []Sink
}

// NewWriter returns a writer over sinks. Nil sinks are skipped.
func NewWriter(sinks ...Sink) *Writer {
	w := &Writer{}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	return w
}

// Sinks returns the names of the configured sinks.
func (w *Writer) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// staged is a file sink's temporary output.
type staged struct {
	sink FileSink
	temp string
}

// Write runs every sink and returns the first failure. File sinks are
// written to temporary files first; the other sinks run only after all of
// them succeed, and the files are renamed into place last. On failure the
// temporary files are removed and no target is touched.
func (w *Writer) Write(ctx context.Context, run model.Run, rows []model.ScoredAggregate) (err error) {
	var files []staged
	var others []Sink
	defer func() {
		if err != nil {
			discard(files)
		}
	}()

	for _, sink := range w.sinks {
		fileSink, ok := sink.(FileSink)
		if !ok {
			others = append(others, sink)
			continue
		}
		temp, tempErr := tempFile(fileSink.Target())
		if tempErr != nil {
			return fmt.Errorf("%s: %w", sink.Name(), tempErr)
		}
		files = append(files, staged{sink: fileSink, temp: temp})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			if err := f.sink.WriteFile(gctx, f.temp, run, rows); err != nil {
				return fmt.Errorf("%s: %w", f.sink.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, sink := range others {
		g.Go(func() error {
			if err := sink.Write(gctx, run, rows); err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			slog.DebugContext(gctx, "Report written", "sink", sink.Name(), "run_id", run.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, f := range files {
		if err := os.Rename(f.temp, f.sink.Target()); err != nil {
			files = files[i:]
			return fmt.Errorf("%s: failed to move report into place: %w", f.sink.Name(), err)
		}
		slog.DebugContext(ctx, "Report written", "sink", f.sink.Name(), "path", f.sink.Target(), "run_id", run.ID)
	}
	return nil
}

// tempFile reserves a hidden file beside target. The ".tmp" suffix keeps it
// out of globs such as a textfile collector's *.prom.
func tempFile(target string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", target, err)
	}
	name := f.Name()
	if err := f.Chmod(0o644); err != nil { //nolint:gosec // reports are meant to be shared
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to stage %s: %w", target, err)
	}
	return name, nil
}

func discard(files []staged) {
	for _, f := range files {
		if err := os.Remove(f.temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove staged report", "path", f.temp, "error", err)
		}
	}
}

// record renders a scored aggregate in Columns order.
func record(row model.ScoredAggregate) []string {
	return []string{
		row.ClaimID,
		row.EmployeeID,
		strconv.Itoa(row.ElementCount),
		formatFloat(row.PaidMiles),
		formatFloat(row.TotalMiles),
		formatFloat(row.CommuteMiles),
		formatFloat(row.Score),
		strconv.Itoa(int(row.Label)),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
