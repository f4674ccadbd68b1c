// Package logging builds the leveled loggers used by testbench components.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LevelFatal is a custom slog level above Error for failures that end a test.
const LevelFatal = slog.LevelError + 4

// DefaultLevel is used when no level, or an unknown level, is configured.
const DefaultLevel = slog.LevelWarn

// ParseLevel maps a level name to a slog.Level. Supported values are "debug",
// "info", "warning" (or "warn"), "error" and "fatal" (or "critical"), in any
// case. The second return value is false for unknown names, in which case
// DefaultLevel is returned.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warning", "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "fatal", "critical":
		return LevelFatal, true
	default:
		return DefaultLevel, false
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Fatal logs msg at LevelFatal. It does not exit; the caller decides how to
// end the test.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFatal, msg, args...)
}
