// Package logging configures the structured logger used by the CLI.
package logging

import (
	"io"
	"log/slog"
)

// Setup returns a text-handler logger writing to w. Verbose mode lowers the
// level to debug so per-stage pipeline details are visible.
func Setup(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
