package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/pipeline"
)

func TestRecorder_ObserveStage(t *testing.T) {
	r := New()

	r.ObserveStage(pipeline.StageReport{Stage: pipeline.StageFilter, RowsIn: 10, RowsOut: 7, Duration: 2 * time.Second})
	r.ObserveStage(pipeline.StageReport{Stage: pipeline.StageSanity, RowsIn: 5, RowsOut: 4})

	assert.InDelta(t, 7, testutil.ToFloat64(r.StageRows.WithLabelValues(pipeline.StageFilter)), 1e-9)
	assert.InDelta(t, 4, testutil.ToFloat64(r.StageRows.WithLabelValues(pipeline.StageSanity)), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(r.StageDuration.WithLabelValues(pipeline.StageFilter)), 1e-9)
}

func TestRecorder_RecordRun(t *testing.T) {
	r := New()
	finished := time.Unix(1750000000, 0)

	r.RecordRun(model.Run{
		Anomalies: 0,
		Normals:   12,
		Duration:  1500 * time.Millisecond,
		Coerced:   map[model.Field]int{model.FieldJourneyDate: 3},
	}, finished)

	assert.InDelta(t, 0, testutil.ToFloat64(r.Claims.WithLabelValues("anomalous")), 1e-9)
	assert.InDelta(t, 12, testutil.ToFloat64(r.Claims.WithLabelValues("normal")), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(r.Coerced.WithLabelValues("journey_date")), 1e-9)
	assert.InDelta(t, 1.5, testutil.ToFloat64(r.RunDuration), 1e-9)
	assert.InDelta(t, 1750000000, testutil.ToFloat64(r.LastSuccess), 1e-9)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveStage(pipeline.StageReport{Stage: "x"})
		r.RecordRun(model.Run{}, time.Now())
	})
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStage(pipeline.StageReport{Stage: pipeline.StageDetect, RowsOut: 3})
	r.RecordRun(model.Run{Anomalies: 1, Normals: 2}, time.Now())

	path := filepath.Join(t.TempDir(), "mileage.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `mileage_audit_stage_rows{stage="detect"} 3`)
	assert.Contains(t, text, `mileage_audit_claims{label="anomalous"} 1`)
	assert.True(t, strings.HasPrefix(text, "# HELP"))

	count, err := testutil.GatherAndCount(r.Registry(), "mileage_audit_claims")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
