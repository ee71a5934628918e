// Package detect fits an unsupervised outlier model to claim aggregates and
// labels each aggregate normal or anomalous.
package detect

import (
	"context"
	"fmt"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
)

// Stage is the pipeline stage name reported in detector errors.
const Stage = "detect"

// MinRows is the smallest input the detector accepts.
const MinRows = 1

// Detector fits a model to a feature matrix. Each row of data is one sample
// and each column one feature.
type Detector interface {
	Fit(ctx context.Context, data [][]float64) (Model, error)
}

// Model is a fitted detector.
type Model interface {
	// Score returns the decision function and label for each sample. Lower
	// scores are more anomalous; negative scores are labelled anomalous.
	Score(data [][]float64) ([]float64, []model.Label, error)
}

// Config holds the detector settings.
type Config struct {
	// Contamination is the expected proportion of anomalies and sets the
	// decision threshold.
	Contamination float64 `mapstructure:"contamination" validate:"gt=0,lte=0.5"`
	Seed          int64   `mapstructure:"seed"`
	Trees         int     `mapstructure:"trees" validate:"gte=1"`
	// SampleSize is the number of rows drawn per tree. Zero means min(256, n).
	SampleSize int `mapstructure:"sample_size" validate:"gte=0"`
	// ExtensionLevel is the number of extra dimensions a split hyperplane may
	// use. -1 uses all of them; 0 is the axis-parallel isolation forest.
	ExtensionLevel int `mapstructure:"extension_level" validate:"gte=-1"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Contamination:  0.01,
		Seed:           0,
		Trees:          100,
		SampleSize:     0,
		ExtensionLevel: -1,
	}
}

// ValidateFeatures checks that features names each aggregate feature exactly
// once, in any order.
func ValidateFeatures(features []model.Feature) error {
	if len(features) != len(model.DefaultFeatures) {
		return fmt.Errorf("%w: need exactly %d features, got %d",
			common.ErrInvalidConfig, len(model.DefaultFeatures), len(features))
	}
	seen := make(map[model.Feature]bool, len(features))
	for _, f := range features {
		if !f.IsValid() {
			return fmt.Errorf("%w: unknown feature %q", common.ErrInvalidConfig, f)
		}
		if seen[f] {
			return fmt.Errorf("%w: duplicate feature %q", common.ErrInvalidConfig, f)
		}
		seen[f] = true
	}
	return nil
}

// FeatureMatrix extracts features from rows in the given column order.
func FeatureMatrix(rows []model.ClaimAggregate, features []model.Feature) ([][]float64, error) {
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		vector := make([]float64, len(features))
		for j, f := range features {
			v, err := row.Value(f)
			if err != nil {
				return nil, err
			}
			vector[j] = v
		}
		matrix[i] = vector
	}
	return matrix, nil
}

// ScoreAggregates fits d to rows and scores the same rows with the result.
// The output preserves the input order.
func ScoreAggregates(ctx context.Context, d Detector, rows []model.ClaimAggregate, features []model.Feature) ([]model.ScoredAggregate, error) {
	if err := ValidateFeatures(features); err != nil {
		return nil, err
	}
	if len(rows) < MinRows {
		return nil, &common.InsufficientDataError{Stage: Stage, Rows: len(rows), Min: MinRows}
	}

	matrix, err := FeatureMatrix(rows, features)
	if err != nil {
		return nil, err
	}

	fitted, err := d.Fit(ctx, matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to fit detector: %w", err)
	}

	scores, labels, err := fitted.Score(matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to score aggregates: %w", err)
	}

	scored := make([]model.ScoredAggregate, len(rows))
	for i, row := range rows {
		scored[i] = model.ScoredAggregate{
			ClaimAggregate: row,
			Score:          scores[i],
			Label:          labels[i],
		}
	}
	return scored, nil
}
