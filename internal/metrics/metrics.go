// Package metrics exposes the outcome of an audit run as Prometheus metrics
// for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/pipeline"
)

// Recorder holds the metrics of one batch run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// Rows leaving each stage
	StageRows *prometheus.GaugeVec

	// Stage wall time
	StageDuration *prometheus.GaugeVec

	// Values coerced to missing by field
	Coerced *prometheus.GaugeVec

	// Scored claims by label
	Claims *prometheus.GaugeVec

	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// New creates a Recorder with every metric registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		StageRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mileage_audit_stage_rows",
			Help: "Rows output by each pipeline stage in the last run",
		}, []string{"stage"}),

		StageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mileage_audit_stage_duration_seconds",
			Help: "Duration of each pipeline stage in the last run",
		}, []string{"stage"}),

		Coerced: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mileage_audit_coerced_values",
			Help: "Unparseable values coerced to missing in the last run by field",
		}, []string{"field"}),

		Claims: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mileage_audit_claims",
			Help: "Claims scored in the last run by label",
		}, []string{"label"}),

		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mileage_audit_run_duration_seconds",
			Help: "Duration of the last run",
		}),

		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mileage_audit_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		}),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage implements pipeline.Observer.
func (r *Recorder) ObserveStage(report pipeline.StageReport) {
	if r == nil {
		return
	}
	r.StageRows.WithLabelValues(report.Stage).Set(float64(report.RowsOut))
	r.StageDuration.WithLabelValues(report.Stage).Set(report.Duration.Seconds())
}

// RecordRun records the totals of a finished run.
func (r *Recorder) RecordRun(run model.Run, finished time.Time) {
	if r == nil {
		return
	}
	for field, count := range run.Coerced {
		r.Coerced.WithLabelValues(string(field)).Set(float64(count))
	}
	r.Claims.WithLabelValues(model.LabelAnomalous.String()).Set(float64(run.Anomalies))
	r.Claims.WithLabelValues(model.LabelNormal.String()).Set(float64(run.Normals))
	r.RunDuration.Set(run.Duration.Seconds())
	r.LastSuccess.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
