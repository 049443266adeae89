// Package logging provides the projector's structured logger: a thin slog
// wrapper plus the typed field helpers used across packages.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger so call sites share one import.
type Logger struct {
	*slog.Logger
}

// New builds a Logger at the given level. format selects the handler:
// "text" for human-readable output, anything else gets JSON. Source
// locations are attached only when logging is restricted to errors.
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level >= slog.LevelError,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default wraps the process-wide slog default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel maps a config string onto a slog level. Unknown values fall
// back to info rather than failing startup.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs l as the process-wide default, including for code
// logging through the plain log package.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
