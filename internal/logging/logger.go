// Package logging wraps log/slog with the small structured-logging idiom
// the teacher repo uses: a Level-and-Component-tagged Logger interface,
// configurable as JSON or text, console or file output.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level mirrors slog's levels under names that read naturally in config.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the structured logging surface every core component depends
// on. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a Logger that always includes the given key/value pairs.
	With(args ...any) Logger
	// WithComponent tags the logger with a component name, used for
	// filtering and correlating log output across the pipeline.
	WithComponent(component string) Logger
}

// Config controls how NewLogger builds its output.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

// DefaultConfig returns an info-level, text-formatted, stdout logger.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, JSON: false, Output: os.Stdout}
}

type qgLogger struct {
	slog *slog.Logger
}

// NewLogger builds a Logger from cfg.
func NewLogger(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &qgLogger{slog: slog.New(handler)}
}

func (l *qgLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

func (l *qgLogger) Info(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

func (l *qgLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

func (l *qgLogger) Error(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

func (l *qgLogger) With(args ...any) Logger {
	return &qgLogger{slog: l.slog.With(args...)}
}

func (l *qgLogger) WithComponent(component string) Logger {
	return &qgLogger{slog: l.slog.With("component", component)}
}

// NewTestLogger returns a Logger that discards output, for use in tests
// that only exercise logging call sites without asserting on them.
func NewTestLogger() Logger {
	return NewLogger(Config{Level: LevelError, JSON: false, Output: io.Discard})
}

var sensitiveMarkers = []string{"password", "token", "secret", "key", "auth"}

// SanitizeForLog redacts substrings that look like they carry a sensitive
// marker and truncates the result, so log lines built from tool output or
// request bodies never leak obvious secrets and never blow up log volume.
func SanitizeForLog(s string) string {
	lower := strings.ToLower(s)
	redacted := s
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			redacted = "[REDACTED: contains sensitive marker]"
			break
		}
	}
	const maxLen = 1000
	if len(redacted) > maxLen {
		redacted = redacted[:maxLen] + "...[truncated]"
	}
	return redacted
}
