package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Veraticus/mileage-audit/internal/cli"
	"github.com/Veraticus/mileage-audit/internal/model"
)

var printer = message.NewPrinter(language.English)

// Title is the caption shared by the plot and the terminal summary. Zero
// anomalies or zero normals are reported as such.
func Title(run model.Run) string {
	return printer.Sprintf("Distribution of anomaly labels (%d anomalous from %d total samples)",
		run.Anomalies, run.Total())
}

// SummarySink prints a boxed run summary to a terminal.
type SummarySink struct {
	Out io.Writer
	// Top is how many of the most anomalous claims to list.
	Top int
}

// Name implements Sink.
func (s *SummarySink) Name() string {
	return "summary"
}

// Write implements Sink.
func (s *SummarySink) Write(_ context.Context, run model.Run, rows []model.ScoredAggregate) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintln(out, RenderSummary(run, rows, s.Top)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// RenderSummary renders the run summary box.
func RenderSummary(run model.Run, rows []model.ScoredAggregate, top int) string {
	var b strings.Builder

	b.WriteString(cli.SubtleStyle.Render(printer.Sprintf("Run %s  •  %s", run.ID, run.Source)))
	b.WriteString("\n")
	b.WriteString(cli.SubtleStyle.Render(printer.Sprintf("Reference time %s  •  contamination %g  •  seed %d",
		run.ReferenceTime.Format(time.DateTime), run.Contamination, run.Seed)))
	b.WriteString("\n\n")

	b.WriteString(cli.BoldStyle.Render("Stages"))
	b.WriteString("\n")
	for _, stage := range run.Stages {
		b.WriteString(printer.Sprintf("  %-10s %9d → %9d\n", stage.Stage, stage.RowsIn, stage.RowsOut))
	}

	if coerced := formatCoerced(run.Coerced); coerced != "" {
		b.WriteString("\n")
		b.WriteString(cli.WarningStyle.Render("Coerced to missing: " + coerced))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(cli.AnomalyStyle.Render(printer.Sprintf("%s Anomalous: %d", cli.FlagIcon, run.Anomalies)))
	b.WriteString("\n")
	b.WriteString(cli.NormalStyle.Render(printer.Sprintf("%s Normal:    %d", cli.SuccessIcon, run.Normals)))

	if worst := mostAnomalous(rows, top); len(worst) > 0 {
		b.WriteString("\n\n")
		b.WriteString(cli.BoldStyle.Render("Most anomalous claims"))
		for _, row := range worst {
			b.WriteString(printer.Sprintf("\n  %-12s %-12s %4d elements  %10.1f paid  %10.1f total  score %.4f",
				row.ClaimID, row.EmployeeID, row.ElementCount, row.PaidMiles, row.TotalMiles, row.Score))
		}
	}

	return cli.RenderBox(cli.ChartIcon+" "+Title(run), b.String())
}

func formatCoerced(coerced map[model.Field]int) string {
	fields := make([]string, 0, len(coerced))
	for f, n := range coerced {
		if n > 0 {
			fields = append(fields, string(f))
		}
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = printer.Sprintf("%s %d", f, coerced[model.Field(f)])
	}
	return strings.Join(parts, ", ")
}

// mostAnomalous returns up to n anomalous rows, lowest score first.
func mostAnomalous(rows []model.ScoredAggregate, n int) []model.ScoredAggregate {
	if n <= 0 {
		return nil
	}
	anomalies := model.Anomalies(rows)
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Score < anomalies[j].Score
	})
	if len(anomalies) > n {
		anomalies = anomalies[:n]
	}
	return anomalies
}
