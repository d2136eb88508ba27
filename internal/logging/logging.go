// Package logging wires the process-wide slog default.
package logging

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupCLI logs human-readable text to stderr. Used by the one-shot
// commands where output is read in a terminal.
func SetupCLI(level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// SetupDaemon logs JSON to a rotating file. The daemon runs for weeks, so
// unbounded log growth is the failure mode to avoid.
func SetupDaemon(level, logPath string) {
	out := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, opts)))
}

// ParseLevel maps a config level name onto a slog level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch s {
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
