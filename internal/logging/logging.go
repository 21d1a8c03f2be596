// Package logging sets up structured logging with log/slog. Ingestion run
// IDs travel through context.Context so every line written during a run
// can be tied back to its ingest_runs row.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// Init creates the process logger for service, writing text lines to w,
// and installs it as the slog default. A nil w means stderr.
func Init(service string, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// OpenSink opens path for appending, creating it and its directory if
// needed. Existing lines are never truncated.
func OpenSink(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WithRunID stores an ingestion run ID in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns logger with the run ID from ctx attached, if any.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunID(ctx); id != "" {
		return logger.With(slog.String("run_id", id))
	}
	return logger
}
