package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// silent sits above LevelError so nothing passes.
const silent = slog.Level(100)

// NewLogger logs to w in the line format, dropping records below level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger is the logger tests and library callers get when they pass none.
func NewDiscardLogger() *slog.Logger {
	return NewLogger(io.Discard, silent)
}

// OrDiscard substitutes a discard logger for nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NewDiscardLogger()
	}
	return l
}

// LevelFromString parses the logging.level config value. Anything it does
// not recognize is treated as info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// LevelFromVerbosity turns the CLI's -v count and --quiet flag into the
// console level. With no -v only warnings and errors reach stderr.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	switch {
	case quiet:
		return silent
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
