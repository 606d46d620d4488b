package nxgraph

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/result"
)

// Logger wraps slog.Logger with pipeline-specific helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithFilter adds the filter name to the logger.
func (l *Logger) WithFilter(name string) *Logger {
	return &Logger{Logger: l.Logger.With("filter", name)}
}

// WithStep adds the pipeline step index to the logger.
func (l *Logger) WithStep(i int) *Logger {
	return &Logger{Logger: l.Logger.With("step", i)}
}

// LogPreflight logs the outcome of one step's preflight. Every error is
// logged on its own line.
func (l *Logger) LogPreflight(ctx context.Context, res result.Errors, warnings []result.Warning) {
	l.logOutcome(ctx, "preflight", res, warnings, 0)
}

// LogExecute logs the outcome of one step's execution.
func (l *Logger) LogExecute(ctx context.Context, res result.Errors, warnings []result.Warning, d time.Duration) {
	l.logOutcome(ctx, "execute", res, warnings, d)
}

func (l *Logger) logOutcome(ctx context.Context, phase string, errs result.Errors, warnings []result.Warning, d time.Duration) {
	for _, w := range warnings {
		l.WarnContext(ctx, phase+" warning", "code", w.Code, "message", w.Message)
	}
	if len(errs) == 0 {
		if d > 0 {
			l.DebugContext(ctx, phase+" completed", "duration", d)
		} else {
			l.DebugContext(ctx, phase+" completed")
		}
		return
	}
	for _, e := range errs {
		l.ErrorContext(ctx, phase+" failed",
			"kind", e.Kind.String(),
			"code", e.Code,
			"error", e.Message,
		)
	}
}

// LogMessage forwards a filter message at debug level.
func (l *Logger) LogMessage(ctx context.Context, m filter.Message) {
	l.DebugContext(ctx, m.Text, "type", m.Type.String())
}

// LogSave logs a container write.
func (l *Logger) LogSave(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "container saved",
			"name", name,
			"bytes", bytes,
		)
	}
}
