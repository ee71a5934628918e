package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaError(t *testing.T) {
	err := &SchemaError{Stage: "normalize", Missing: []string{"Start Date:Timesheet", "V_AllMileage_A"}}

	assert.Equal(t, `required columns missing from source: "Start Date:Timesheet", "V_AllMileage_A"`, err.Error())
	assert.Equal(t, "normalize", FailedStage(err))
}

func TestStageError_Unwrap(t *testing.T) {
	inner := &InsufficientDataError{Stage: "detect", Rows: 0, Min: 1}
	err := fmt.Errorf("run failed: %w", &StageError{Stage: "detect", Err: inner})

	var dataErr *InsufficientDataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, 0, dataErr.Rows)
	assert.Equal(t, "detect", FailedStage(err))
	assert.Contains(t, err.Error(), "stage detect: insufficient data: got 0 rows, need at least 1")
}

func TestFailedStage_Unattributed(t *testing.T) {
	assert.Equal(t, "", FailedStage(errors.New("boom")))
}

func TestUserError(t *testing.T) {
	base := errors.New("file not found")
	err := NewUserError("could not read export", base)

	assert.Equal(t, "could not read export: file not found", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "just a message", NewUserError("just a message", nil).Error())
}
