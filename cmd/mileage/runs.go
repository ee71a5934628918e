package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/mileage-audit/internal/cli"
	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/report"
	"github.com/Veraticus/mileage-audit/internal/storage"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect previous scans recorded in the run ledger",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsDeleteCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd.Context(), func(store *storage.SQLiteStorage) error {
				return listRuns(cmd.Context(), store, cmd.OutOrStdout(), limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run and its anomalous claims",
		Long: `Show prints the summary of a recorded run followed by its anomalous claims.
The run id may be abbreviated to any unique prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store *storage.SQLiteStorage) error {
				return showRun(cmd.Context(), store, cmd.OutOrStdout(), args[0], all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every scored claim, not only anomalies")
	return cmd
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run and its scored claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(store *storage.SQLiteStorage) error {
				return deleteRun(cmd.Context(), store, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func withStorage(ctx context.Context, fn func(*storage.SQLiteStorage) error) error {
	store, err := initStorage(ctx, appConfig.Database.Path)
	if err != nil {
		return err
	}
	defer closeStore(store)
	return fn(store)
}

func listRuns(ctx context.Context, store *storage.SQLiteStorage, out io.Writer, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No runs recorded yet. Use 'mileage scan' to create one."))
		return err
	}

	if _, err := fmt.Fprintf(out, "%s\n\n", cli.FormatTitle("Recorded runs")); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := cli.TableHeaderStyle
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Started"),
		headerStyle.Render("Reference"),
		headerStyle.Render("Anomalous"),
		headerStyle.Render("Total"),
		headerStyle.Render("Source")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 8),
		strings.Repeat("─", 16),
		strings.Repeat("─", 10),
		strings.Repeat("─", 9),
		strings.Repeat("─", 5),
		strings.Repeat("─", 20)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.ReferenceTime.Local().Format("2006-01-02"),
			run.Anomalies,
			run.Total(),
			run.Source); err != nil {
			return fmt.Errorf("failed to write run row: %w", err)
		}
	}

	return nil
}

func showRun(ctx context.Context, store *storage.SQLiteStorage, out io.Writer, id string, all bool) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return common.NewUserError(fmt.Sprintf("no run matches %q", id), err)
		}
		return fmt.Errorf("failed to load run: %w", err)
	}

	rows, err := store.GetScoredClaims(ctx, run.ID, !all)
	if err != nil {
		return fmt.Errorf("failed to load scored claims: %w", err)
	}

	if _, err := fmt.Fprintln(out, report.RenderSummary(*run, nil, 0)); err != nil {
		return err
	}

	heading, empty := "Anomalous claims", "No anomalous claims in this run."
	if all {
		heading, empty = "All scored claims", "No scored claims in this run."
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, cli.InfoStyle.Render(empty))
		return err
	}
	if _, err := fmt.Fprintln(out, cli.SubtitleStyle.Render(heading)); err != nil {
		return err
	}
	return writeClaims(out, rows)
}

// writeClaims lists rows with the report columns. The label is the last
// column so its colour codes do not disturb alignment.
func writeClaims(out io.Writer, rows []model.ScoredAggregate) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, len(report.Columns))
	for i, c := range report.Columns {
		header[i] = cli.TableHeaderStyle.Render(c)
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%.1f\t%.1f\t%.4f\t%s\n",
			row.ClaimID,
			row.EmployeeID,
			row.ElementCount,
			row.PaidMiles,
			row.TotalMiles,
			row.CommuteMiles,
			row.Score,
			cli.FormatLabel(row.IsAnomalous())); err != nil {
			return fmt.Errorf("failed to write claim row: %w", err)
		}
	}
	return w.Flush()
}

func deleteRun(ctx context.Context, store *storage.SQLiteStorage, out io.Writer, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return common.NewUserError(fmt.Sprintf("no run matches %q", id), err)
		}
		return fmt.Errorf("failed to load run: %w", err)
	}
	if err := store.DeleteRun(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted run %s", shortID(run.ID))))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
