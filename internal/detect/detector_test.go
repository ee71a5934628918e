package detect

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
)

// clusterWithOutlier returns n tight aggregates around a typical claim plus
// one extreme claim at the end.
func clusterWithOutlier(n int) []model.ClaimAggregate {
	r := rand.New(rand.NewSource(7))
	rows := make([]model.ClaimAggregate, 0, n+1)
	for i := 0; i < n; i++ {
		rows = append(rows, model.ClaimAggregate{
			ClaimID:      string(rune('a'+i%26)) + "-claim",
			EmployeeID:   "E1",
			ElementCount: 2 + r.Intn(3),
			PaidMiles:    20 + r.Float64()*10,
			TotalMiles:   40 + r.Float64()*10,
			CommuteMiles: 8 + r.Float64()*4,
		})
	}
	rows = append(rows, model.ClaimAggregate{
		ClaimID:      "outlier",
		EmployeeID:   "E9",
		ElementCount: 60,
		PaidMiles:    2500,
		TotalMiles:   4000,
		CommuteMiles: 3000,
	})
	return rows
}

func newForest(t *testing.T, mutate func(*Config)) *Forest {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := NewForest(cfg)
	require.NoError(t, err)
	return f
}

func TestScoreAggregates_OutlierIsMostAnomalous(t *testing.T) {
	for _, ext := range []int{-1, 0} {
		rows := clusterWithOutlier(60)
		f := newForest(t, func(c *Config) {
			c.Contamination = 0.05
			c.ExtensionLevel = ext
		})

		scored, err := ScoreAggregates(context.Background(), f, rows, model.DefaultFeatures)
		require.NoError(t, err)
		require.Len(t, scored, len(rows))

		last := scored[len(scored)-1]
		assert.Equal(t, "outlier", last.ClaimID, "order is preserved")
		assert.True(t, last.IsAnomalous(), "extension level %d", ext)
		for _, row := range scored[:len(scored)-1] {
			assert.Less(t, last.Score, row.Score, "extension level %d", ext)
		}
	}
}

func TestScoreAggregates_LabelsFollowScoreSign(t *testing.T) {
	rows := clusterWithOutlier(40)
	scored, err := ScoreAggregates(context.Background(), newForest(t, func(c *Config) { c.Contamination = 0.2 }), rows, model.DefaultFeatures)
	require.NoError(t, err)

	for _, row := range scored {
		assert.Equal(t, row.Score < 0, row.IsAnomalous(), row.ClaimID)
	}
}

func TestScoreAggregates_Deterministic(t *testing.T) {
	rows := clusterWithOutlier(30)

	first, err := ScoreAggregates(context.Background(), newForest(t, nil), rows, model.DefaultFeatures)
	require.NoError(t, err)
	second, err := ScoreAggregates(context.Background(), newForest(t, nil), rows, model.DefaultFeatures)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreAggregates_FeatureOrderIsFree(t *testing.T) {
	rows := clusterWithOutlier(30)
	reordered := []model.Feature{
		model.FeatureCommuteMiles,
		model.FeatureElementCount,
		model.FeatureTotalMiles,
		model.FeaturePaidMiles,
	}

	scored, err := ScoreAggregates(context.Background(), newForest(t, func(c *Config) { c.Contamination = 0.05 }), rows, reordered)
	require.NoError(t, err)
	assert.True(t, scored[len(scored)-1].IsAnomalous())
}

func TestScoreAggregates_ContaminationIsMonotone(t *testing.T) {
	rows := clusterWithOutlier(80)

	count := func(contamination float64) int {
		scored, err := ScoreAggregates(context.Background(), newForest(t, func(c *Config) { c.Contamination = contamination }), rows, model.DefaultFeatures)
		require.NoError(t, err)
		anomalous, _ := model.CountLabels(scored)
		return anomalous
	}

	low, high := count(0.01), count(0.5)
	assert.LessOrEqual(t, low, high)
	assert.GreaterOrEqual(t, high, len(rows)/3)
}

func TestScoreAggregates_SingleRow(t *testing.T) {
	rows := []model.ClaimAggregate{{
		ClaimID:      "C1",
		EmployeeID:   "E1",
		ElementCount: 2,
		PaidMiles:    20,
		TotalMiles:   40,
		CommuteMiles: 8,
	}}

	scored, err := ScoreAggregates(context.Background(), newForest(t, nil), rows, model.DefaultFeatures)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, model.LabelNormal, scored[0].Label)
	assert.InDelta(t, 0, scored[0].Score, 1e-12)
}

func TestScoreAggregates_Empty(t *testing.T) {
	_, err := ScoreAggregates(context.Background(), newForest(t, nil), nil, model.DefaultFeatures)
	require.Error(t, err)

	var insufficient *common.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, Stage, insufficient.Stage)
	assert.Equal(t, 0, insufficient.Rows)
	assert.Equal(t, MinRows, insufficient.Min)
}

func TestScoreAggregates_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScoreAggregates(ctx, newForest(t, nil), clusterWithOutlier(10), model.DefaultFeatures)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestValidateFeatures(t *testing.T) {
	tests := []struct {
		name     string
		features []model.Feature
		wantErr  bool
	}{
		{name: "default", features: model.DefaultFeatures},
		{name: "too few", features: model.DefaultFeatures[:3], wantErr: true},
		{name: "duplicate", features: []model.Feature{"paid_miles", "paid_miles", "total_miles", "commute_miles"}, wantErr: true},
		{name: "unknown", features: []model.Feature{"element_count", "paid_miles", "total_miles", "speed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeatures(tt.features)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewForest_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero contamination", mutate: func(c *Config) { c.Contamination = 0 }},
		{name: "contamination above half", mutate: func(c *Config) { c.Contamination = 0.6 }},
		{name: "no trees", mutate: func(c *Config) { c.Trees = 0 }},
		{name: "negative sample size", mutate: func(c *Config) { c.SampleSize = -1 }},
		{name: "extension below -1", mutate: func(c *Config) { c.ExtensionLevel = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewForest(cfg)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestForest_ExtensionLevelTooHigh(t *testing.T) {
	f := newForest(t, func(c *Config) { c.ExtensionLevel = 4 })
	_, err := f.Fit(context.Background(), [][]float64{{1, 2}, {3, 4}})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestForest_RaggedInput(t *testing.T) {
	_, err := newForest(t, nil).Fit(context.Background(), [][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}

	assert.InDelta(t, 1, percentile(values, 0), 1e-12)
	assert.InDelta(t, 3, percentile(values, 50), 1e-12)
	assert.InDelta(t, 5, percentile(values, 100), 1e-12)
	assert.InDelta(t, 1.04, percentile(values, 1), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, values, "input is not reordered")
}

func TestAveragePathLength(t *testing.T) {
	assert.InDelta(t, 0, averagePathLength(1), 1e-12)
	assert.InDelta(t, 1, averagePathLength(2), 1e-12)
	assert.InDelta(t, 10.244771, averagePathLength(256), 1e-5)
}
