// Package storage persists completed audit runs and their scored claims.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidRun   = errors.New("invalid run")
	ErrInvalidClaim = errors.New("invalid scored claim")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks a run before it is written.
func validateRun(run model.Run, rows []model.ScoredAggregate) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRun)
	}
	if run.ReferenceTime.IsZero() {
		return fmt.Errorf("%w: missing reference time", ErrInvalidRun)
	}
	if run.Anomalies < 0 || run.Normals < 0 {
		return fmt.Errorf("%w: negative label count", ErrInvalidRun)
	}
	if run.Total() != len(rows) {
		return fmt.Errorf("%w: label counts total %d but %d rows given", ErrInvalidRun, run.Total(), len(rows))
	}

	for i, row := range rows {
		if row.Label != model.LabelNormal && row.Label != model.LabelAnomalous {
			return fmt.Errorf("%w at index %d: label %d", ErrInvalidClaim, i, row.Label)
		}
		if row.ElementCount < 1 {
			return fmt.Errorf("%w at index %d: element count %d", ErrInvalidClaim, i, row.ElementCount)
		}
	}
	return nil
}
