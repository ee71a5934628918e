package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/detect"
	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/schema"
	"github.com/Veraticus/mileage-audit/internal/source"
)

// Stage names, in execution order.
const (
	StageDecode    = "decode"
	StageFilter    = "filter"
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageSanity    = "sanity"
	StageDetect    = detect.Stage
)

// Stages lists every stage in execution order.
var Stages = []string{StageDecode, StageFilter, StageNormalize, StageAggregate, StageSanity, StageDetect}

// StageReport describes one finished stage.
type StageReport struct {
	Stage    string
	RowsIn   int
	RowsOut  int
	Duration time.Duration
}

// Observer is notified as each stage finishes.
type Observer interface {
	ObserveStage(report StageReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(StageReport)

// ObserveStage implements Observer.
func (f ObserverFunc) ObserveStage(report StageReport) {
	f(report)
}

// Config holds the settings of every stage.
type Config struct {
	Mapping   schema.Mapping
	Filter    FilterOptions
	Normalize NormalizeOptions
	Features  []model.Feature
	Detector  detect.Config
	Sanity    SanityBounds
}

// DefaultConfig returns the configuration of the timesheet export audit.
func DefaultConfig() Config {
	return Config{
		Mapping:   schema.DefaultMapping(),
		Filter:    DefaultFilterOptions(),
		Normalize: DefaultNormalizeOptions(),
		Features:  append([]model.Feature(nil), model.DefaultFeatures...),
		Detector:  detect.DefaultConfig(),
		Sanity:    DefaultSanityBounds(),
	}
}

// Result is the outcome of a successful run.
type Result struct {
	Scored []model.ScoredAggregate
	Run    model.Run
}

// Anomalies returns the anomalous rows in their original order.
func (r *Result) Anomalies() []model.ScoredAggregate {
	return model.Anomalies(r.Scored)
}

// Pipeline runs the audit stages over one table.
type Pipeline struct {
	clock     func() time.Time
	detector  detect.Detector
	logger    *slog.Logger
	observers []Observer
	cfg       Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the source of the run's reference time.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithDetector replaces the forest built from Config.Detector.
func WithDetector(d detect.Detector) Option {
	return func(p *Pipeline) {
		p.detector = d
	}
}

// WithObserver adds a stage observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline. It fails if the detector settings are invalid.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:   cfg,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.detector == nil {
		forest, err := detect.NewForest(cfg.Detector)
		if err != nil {
			return nil, err
		}
		p.detector = forest
	}
	if err := detect.ValidateFeatures(cfg.Features); err != nil {
		return nil, err
	}
	return p, nil
}

// Run executes every stage over table. The reference time is read once. Any
// stage failure aborts the run with a *common.StageError.
func (p *Pipeline) Run(ctx context.Context, table *source.Table) (*Result, error) {
	startedAt := time.Now()
	now := p.clock()
	run := model.Run{
		ID:            uuid.NewString(),
		Source:        table.Source,
		ReferenceTime: now,
		StartedAt:     startedAt,
		Contamination: p.cfg.Detector.Contamination,
		Seed:          p.cfg.Detector.Seed,
	}
	logger := p.logger.With("run_id", run.ID)

	binding := schema.Bind(table.Header, p.cfg.Mapping)
	if err := binding.Require(StageFilter, p.cfg.Filter.RequiredFields()...); err != nil {
		return nil, &common.StageError{Stage: StageFilter, Err: err}
	}
	if err := binding.Require(StageNormalize, p.cfg.Normalize.RequiredFields()...); err != nil {
		return nil, &common.StageError{Stage: StageNormalize, Err: err}
	}

	stage := func(name string, in int, began time.Time, out int) error {
		report := StageReport{Stage: name, RowsIn: in, RowsOut: out, Duration: time.Since(began)}
		run.Stages = append(run.Stages, model.StageCount{Stage: name, RowsIn: in, RowsOut: out})
		logger.DebugContext(ctx, "Stage finished",
			"stage", name,
			"rows_in", in,
			"rows_out", out,
			"duration", report.Duration)
		for _, o := range p.observers {
			o.ObserveStage(report)
		}
		if err := ctx.Err(); err != nil {
			return &common.StageError{Stage: name, Err: err}
		}
		return nil
	}

	began := time.Now()
	records, coerced := binding.DecodeAll(table.Rows)
	if err := stage(StageDecode, len(table.Rows), began, len(records)); err != nil {
		return nil, err
	}

	began = time.Now()
	filtered := FilterRecords(records, p.cfg.Filter)
	if err := stage(StageFilter, len(records), began, len(filtered)); err != nil {
		return nil, err
	}

	began = time.Now()
	normalizer := NewNormalizer(p.cfg.Normalize, now)
	normalized, stats := normalizer.Normalize(filtered)
	for f, count := range stats.Coerced {
		coerced[f] += count
	}
	windowStart, windowEnd := normalizer.Window()
	logger.InfoContext(ctx, "Normalized records",
		"window_start", windowStart.Format(time.DateOnly),
		"window_end", windowEnd.Format(time.DateOnly),
		"missing_submitted", stats.MissingSubmitted,
		"out_of_window", stats.OutOfWindow)
	for f, count := range coerced {
		if count > 0 {
			logger.InfoContext(ctx, "Coerced unparseable values to missing", "field", f, "count", count)
		}
	}
	if err := stage(StageNormalize, len(filtered), began, len(normalized)); err != nil {
		return nil, err
	}

	began = time.Now()
	aggregates, blankKeys := AggregateClaims(normalized)
	if blankKeys > 0 {
		logger.WarnContext(ctx, "Records with blank claim or employee id", "count", blankKeys)
	}
	if err := stage(StageAggregate, len(normalized), began, len(aggregates)); err != nil {
		return nil, err
	}

	began = time.Now()
	plausible := SanityFilter(aggregates, p.cfg.Sanity)
	if err := stage(StageSanity, len(aggregates), began, len(plausible)); err != nil {
		return nil, err
	}

	began = time.Now()
	scored, err := detect.ScoreAggregates(ctx, p.detector, plausible, p.cfg.Features)
	if err != nil {
		return nil, &common.StageError{Stage: StageDetect, Err: err}
	}
	if err := stage(StageDetect, len(plausible), began, len(scored)); err != nil {
		return nil, err
	}

	run.Coerced = coerced
	run.Anomalies, run.Normals = model.CountLabels(scored)
	run.Duration = time.Since(startedAt)

	logger.InfoContext(ctx, "Pipeline completed",
		"source", table.Source,
		"scored", len(scored),
		"anomalies", run.Anomalies,
		"duration", run.Duration)

	return &Result{Run: run, Scored: scored}, nil
}
