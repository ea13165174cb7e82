// Package logger wraps log/slog behind a small interface so the
// commands and the API server can swap handlers without touching call
// sites.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging surface used across tandem. Implementations
// wrap *slog.Logger, so tests can capture output through any
// slog.Handler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New wraps an arbitrary slog handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// Default logs pretty output to stderr at info level.
func Default() Logger {
	return New(NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Setup builds the process logger from the configured output format.
// Known formats are "pretty" (the default), "text" and "json".
func Setup(w io.Writer, format string, level slog.Level) Logger {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		opts.AddSource = true
		return New(slog.NewJSONHandler(w, opts))
	case "text":
		return New(slog.NewTextHandler(w, opts))
	default:
		return New(NewPrettyHandler(w, opts))
	}
}

// ParseLevel maps a config string to a slog level. Unknown values are
// an error so a typo in the config does not silently change verbosity.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

type ctxKey struct{}

// WithContext attaches the logger to ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or Default when none
// is attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Default()
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}
