package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/mileage-audit/internal/pipeline"
)

// StageProgress renders a progress bar that advances as pipeline stages
// finish. It implements pipeline.Observer.
type StageProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewStageProgress creates a progress bar over every pipeline stage.
func NewStageProgress(writer io.Writer) *StageProgress {
	if writer == nil {
		writer = os.Stderr
	}

	bar := progressbar.NewOptions(len(pipeline.Stages),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Auditing claims...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	return &StageProgress{writer: writer, bar: bar}
}

// ObserveStage implements pipeline.Observer.
func (p *StageProgress) ObserveStage(report pipeline.StageReport) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%-9s[reset] %d rows", report.Stage, report.RowsOut))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to advance progress bar", "error", err)
	}
}

// Finish completes the bar and moves to a new line.
func (p *StageProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline", "error", err)
	}
}
