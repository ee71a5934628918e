package common

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_JSONToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "mileage.log")
	var stderr bytes.Buffer

	logger, closer, err := NewLogger(LogOptions{
		Level:     slog.LevelInfo,
		Format:    "json",
		File:      logFile,
		MaxSizeMB: 1,
	}, &stderr)
	require.NoError(t, err)

	logger.Info("stage completed", "stage", "filter", "rows_out", 3)
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "stage completed", entry["msg"])
	assert.Equal(t, "filter", entry["stage"])
	assert.Equal(t, content, stderr.Bytes())
}

func TestNewLogger_ConsoleFiltersLevel(t *testing.T) {
	var stderr bytes.Buffer

	logger, closer, err := NewLogger(LogOptions{Level: slog.LevelWarn, Format: "console"}, &stderr)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "shown")
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, _, err := NewLogger(LogOptions{Format: "xml"}, &bytes.Buffer{})
	assert.EqualError(t, err, "invalid log format: xml")
}
