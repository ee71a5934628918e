package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields represents structured logging fields.
type Fields map[string]any

// LogOptions controls where and how log records are written.
type LogOptions struct {
	Format     string
	File       string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger builds a logger writing to stderr and, when opts.File is set, to a
// size-rotated log file. The returned closer releases the file.
func NewLogger(opts LogOptions, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	if stderr == nil {
		stderr = os.Stderr
	}

	var out io.Writer = stderr
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		out = io.MultiWriter(stderr, rotator)
		closer = rotator
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "console", "":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		return nil, nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}

	return slog.New(handler), closer, nil
}

// SetupLogger configures the global logger with appropriate settings.
func SetupLogger(opts LogOptions) (io.Closer, error) {
	logger, closer, err := NewLogger(opts, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

// LogError logs an error with additional context.
func LogError(err error, msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("error", err.Error()))

	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	slog.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}
