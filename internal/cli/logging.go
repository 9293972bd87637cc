package cli

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// logLevel maps -v/-q to a slog level. Warnings are shown by default.
func logLevel() slog.Level {
	switch {
	case quiet:
		return slog.LevelError
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// newLogger returns the run logger. Every record carries the run's ID so
// interleaved output from concurrent projects can be told apart.
func newLogger(w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	return logger.With("run_id", uuid.NewString())
}
