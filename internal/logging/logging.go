// Package logging builds the slog.Logger handed to every component.
//
// LOG_LEVEL selects the level (debug, info, warn, error; default info).
// LOG_FORMAT selects the handler: text (default) or json.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to w, configured from the environment.
func New(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
