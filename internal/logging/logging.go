// Package logging wires log/slog with github.com/lmittmann/tint so CLI and
// server output reads like a human-operated tool rather than raw JSON
// lines, while still being structured slog underneath.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Level parses a config-file level name, defaulting to Info for an
// unrecognized or empty value.
func Level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a tint-backed slog.Logger as the default logger and
// returns it, writing to w at the given level with time.Kitchen ("3:04PM")
// timestamps.
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// SetupDefault installs a tint handler on stderr at Info level, for
// entry points that have not yet loaded a Config (e.g. CLI argument
// errors printed before config.Load runs).
func SetupDefault() *slog.Logger {
	return Setup(os.Stderr, slog.LevelInfo)
}
