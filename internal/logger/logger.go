// Package logger wraps log/slog behind a small interface so packages can take
// a Logger without caring about handler wiring. The level is adjustable at
// runtime and HTTP request logging can be toggled independently.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface the rest of the application depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level slog.Level)
	EnableHTTPLogging()
	DisableHTTPLogging()
	IsHTTPLoggingEnabled() bool
}

// SlogLogger implements Logger over a slog text handler.
type SlogLogger struct {
	logger      *slog.Logger
	level       *slog.LevelVar
	httpLogging atomic.Bool
}

// New returns a logger writing to stdout at info level.
func New() *SlogLogger {
	return NewWithLevel(slog.LevelInfo)
}

// NewWithLevel returns a stdout logger at the given level.
func NewWithLevel(level slog.Level) *SlogLogger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter returns a logger writing to w. Tests pass a buffer or io.Discard.
func NewWithWriter(w io.Writer, level slog.Level) *SlogLogger {
	lv := &slog.LevelVar{}
	lv.Set(level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	return &SlogLogger{logger: slog.New(handler), level: lv}
}

// ParseLevel maps a level name (debug, info, warn/warning, error,
// case-insensitive) to its slog.Level. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l *SlogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

func (l *SlogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// SetLevel adjusts the minimum level at runtime.
func (l *SlogLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

func (l *SlogLogger) EnableHTTPLogging() {
	l.httpLogging.Store(true)
}

func (l *SlogLogger) DisableHTTPLogging() {
	l.httpLogging.Store(false)
}

func (l *SlogLogger) IsHTTPLoggingEnabled() bool {
	return l.httpLogging.Load()
}
