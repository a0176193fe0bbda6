package arx

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/saetre/arx/model"
)

// Logger wraps slog.Logger with arx-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithLevels adds a level vector field to the logger.
func (l *Logger) WithLevels(levels model.Levels) *Logger {
	return &Logger{
		Logger: l.Logger.With("levels", levels.String()),
	}
}

// WithRequirements adds a requirements field to the logger.
func (l *Logger) WithRequirements(reqs model.Requirements) *Logger {
	return &Logger{
		Logger: l.Logger.With("requirements", reqs.String()),
	}
}

// WithRunID tags the logger with the run identifier used for spilled blobs.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// LogTransform logs one transformation.
func (l *Logger) LogTransform(ctx context.Context, levels model.Levels, mode model.Mode, classes, scanned int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "transform failed",
			"levels", levels.String(),
			"mode", mode.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "transform completed",
			"levels", levels.String(),
			"mode", mode.String(),
			"classes", classes,
			"scanned", scanned,
			"duration", d,
		)
	}
}

// LogSnapshot logs a snapshot capture.
func (l *Logger) LogSnapshot(ctx context.Context, levels model.Levels, records int, stored bool, err error) {
	if err != nil {
		l.WarnContext(ctx, "snapshot capture failed",
			"levels", levels.String(),
			"records", records,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "snapshot captured",
			"levels", levels.String(),
			"records", records,
			"stored", stored,
		)
	}
}

// LogEviction logs a snapshot leaving the memory cache.
func (l *Logger) LogEviction(levels model.Levels, bytes int, spilled bool) {
	l.Debug("snapshot evicted",
		"levels", levels.String(),
		"bytes", bytes,
		"spilled", spilled,
	)
}

// LogSpill logs a snapshot blob transfer. op is "write" or "reload".
func (l *Logger) LogSpill(ctx context.Context, op string, levels model.Levels, blob string, bytes int, err error) {
	if err != nil {
		l.WarnContext(ctx, "snapshot spill failed",
			"op", op,
			"levels", levels.String(),
			"blob", blob,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "snapshot spill completed",
			"op", op,
			"levels", levels.String(),
			"blob", blob,
			"bytes", bytes,
		)
	}
}
