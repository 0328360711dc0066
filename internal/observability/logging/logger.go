// Package logging builds the shared slog setup for the api and worker
// binaries.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger writes structured JSON to stdout and tags every record
// with the owning service name. Debug level also records source
// positions.
func NewJSONLogger(service, level string) *slog.Logger {
	parsed := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed == slog.LevelDebug,
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
