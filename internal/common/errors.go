// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Input errors.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrNoHeader          = errors.New("input has no header row")

	// Ledger errors.
	ErrNotFound = errors.New("not found")
)

// SchemaError reports canonical columns a stage needs that the source lacks.
type SchemaError struct {
	Stage   string
	Missing []string
}

func (e *SchemaError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, name := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("required columns missing from source: %s", strings.Join(quoted, ", "))
}

// InsufficientDataError reports that a stage received fewer rows than it can
// work with.
type InsufficientDataError struct {
	Stage string
	Rows  int
	Min   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: got %d rows, need at least %d", e.Rows, e.Min)
}

// StageError attributes a failure to the pipeline stage that raised it.
type StageError struct {
	Err   error
	Stage string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// FailedStage returns the stage named by err, or "" when err carries none.
func FailedStage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr.Stage
	}
	var dataErr *InsufficientDataError
	if errors.As(err, &dataErr) {
		return dataErr.Stage
	}
	return ""
}
