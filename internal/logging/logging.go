// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w. Debug enables debug records;
// otherwise only warnings and errors are written. Quiet discards everything.
func New(w io.Writer, debug, quiet bool) *slog.Logger {
	if quiet || w == nil {
		return slog.New(slog.DiscardHandler)
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
