package server

import (
	"log/slog"
	"os"
)

// defaultLogger mirrors the shape of a small per-library slog logger: a
// text handler to stderr unless the caller supplies their own via the
// Logger option. Unlike a multi-category application logger, a single OSC
// server only needs one.
func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("component", "osc.server")
}
