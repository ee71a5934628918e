package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/mileage-audit/internal/cli"
	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/config"
	"github.com/Veraticus/mileage-audit/internal/metrics"
	"github.com/Veraticus/mileage-audit/internal/pipeline"
	"github.com/Veraticus/mileage-audit/internal/report"
	"github.com/Veraticus/mileage-audit/internal/source"
	"github.com/Veraticus/mileage-audit/internal/storage"
	"github.com/Veraticus/mileage-audit/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// summaryTop is how many claims the terminal summary lists.
const summaryTop = 10

type scanOptions struct {
	Now    time.Time
	Input  string
	Review bool
}

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Score the mileage claims in a timesheet export",
		Long: `Scan reads a timesheet export (CSV or XLSX), keeps authorised mileage
claims submitted within the last 13 months, sums them per claim and employee,
and scores every claim for anomalies.

Anomalous claims are written to "<input> Labelled.csv" unless --out is given.`,
		Example: `  mileage scan claims.csv
  mileage scan export.xlsx --sheet Claims --xlsx scored.xlsx --plot pairs.svg
  mileage scan claims.csv --now 31/03/2025 --contamination 0.05 --review`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().String("out", "", "anomalies CSV path (default: \"<input> Labelled.csv\")")
	cmd.Flags().String("xlsx", "", "also write an XLSX workbook of anomalies and all scored claims")
	cmd.Flags().String("plot", "", "also write an SVG pair plot of the detector features")
	cmd.Flags().String("sheet", "", "worksheet to read from an XLSX export (default: first sheet)")
	cmd.Flags().String("format", "auto", "input format (auto, csv, xlsx)")
	cmd.Flags().String("now", "", "reference date for the 13-month window (default: today)")
	cmd.Flags().Float64("contamination", 0.01, "expected share of anomalous claims")
	cmd.Flags().Int64("seed", 0, "random seed for the detector")
	cmd.Flags().BoolP("quiet", "q", false, "suppress the progress bar and summary")
	cmd.Flags().Bool("review", false, "open an interactive review table after scoring")

	_ = viper.BindPFlag("report.output", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("report.xlsx", cmd.Flags().Lookup("xlsx"))
	_ = viper.BindPFlag("report.plot", cmd.Flags().Lookup("plot"))
	_ = viper.BindPFlag("report.quiet", cmd.Flags().Lookup("quiet"))
	_ = viper.BindPFlag("input.sheet", cmd.Flags().Lookup("sheet"))
	_ = viper.BindPFlag("input.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("detector.contamination", cmd.Flags().Lookup("contamination"))
	_ = viper.BindPFlag("detector.seed", cmd.Flags().Lookup("seed"))

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	nowText, err := cmd.Flags().GetString("now")
	if err != nil {
		return err
	}
	now, err := parseNow(nowText)
	if err != nil {
		return err
	}
	review, err := cmd.Flags().GetBool("review")
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	_, err = runScan(ctx, appConfig, scanOptions{
		Input:  args[0],
		Now:    now,
		Review: review,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil && handler.WasInterrupted() {
		return common.NewUserError("scan interrupted", context.Canceled)
	}
	return err
}

// runScan loads the export, runs the pipeline and writes every configured
// report. Nothing is written when the pipeline fails.
func runScan(ctx context.Context, cfg *config.Config, opts scanOptions, stdout, stderr io.Writer) (*pipeline.Result, error) {
	table, err := source.Load(ctx, opts.Input, cfg.Input)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not read %s", opts.Input), err)
	}

	var pipelineOpts []pipeline.Option
	if !opts.Now.IsZero() {
		now := opts.Now
		pipelineOpts = append(pipelineOpts, pipeline.WithClock(func() time.Time { return now }))
	}

	var progress *cli.StageProgress
	if !cfg.Report.Quiet {
		progress = cli.NewStageProgress(stderr)
		pipelineOpts = append(pipelineOpts, pipeline.WithObserver(progress))
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.New()
		pipelineOpts = append(pipelineOpts, pipeline.WithObserver(recorder))
	}

	p, err := pipeline.New(cfg.Pipeline(), pipelineOpts...)
	if err != nil {
		return nil, err
	}

	result, err := p.Run(ctx, table)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		var dataErr *common.InsufficientDataError
		if errors.As(err, &dataErr) {
			return nil, common.NewUserError("no claims left to score after filtering", err)
		}
		return nil, err
	}

	output := cfg.Report.Output
	if output == "" {
		output = config.LabelledPath(opts.Input, ".csv")
	}

	sinks := []report.Sink{&report.CSVSink{Path: output}}
	if cfg.Report.XLSX != "" {
		sinks = append(sinks, &report.XLSXSink{Path: cfg.Report.XLSX})
	}
	if cfg.Report.Plot != "" {
		sinks = append(sinks, &report.PlotSink{Path: cfg.Report.Plot, Features: cfg.Features})
	}
	if !cfg.Report.Quiet {
		sinks = append(sinks, &report.SummarySink{Out: stdout, Top: summaryTop})
	}
	if cfg.Database.Path != "" {
		store, storeErr := initStorage(ctx, cfg.Database.Path)
		if storeErr != nil {
			return nil, storeErr
		}
		defer closeStore(store)
		sinks = append(sinks, &report.LedgerSink{Store: store})
	}
	if recorder != nil {
		sinks = append(sinks, &report.MetricsSink{Recorder: recorder, Path: cfg.Metrics.Textfile})
	}

	writer := report.NewWriter(sinks...)
	if err := writer.Write(ctx, result.Run, result.Scored); err != nil {
		return nil, err
	}
	slog.Info("Reports written",
		"run_id", result.Run.ID,
		"output", output,
		"sinks", writer.Sinks())

	if opts.Review {
		reviewCfg := tui.DefaultConfig()
		reviewCfg.Title = report.Title(result.Run)
		if err := tui.RunReview(ctx, result.Scored, reviewCfg); err != nil {
			return result, err
		}
	}

	return result, nil
}

func closeStore(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close run ledger", "error", err)
	}
}
