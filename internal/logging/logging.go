// Package logging builds the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
)

// NewHandler returns a text or JSON handler writing to w at level.
// Any format other than "json" yields a text handler.
func NewHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup installs a handler built by NewHandler as the default logger and
// returns it.
func Setup(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	logger := slog.New(NewHandler(w, format, level))
	slog.SetDefault(logger)
	return logger
}
