// Package zlog wraps log/slog the way the rest of the stack does: a text
// handler, a service name attached to every record, and a context-carried
// logger so request handlers can pick up fields added upstream (slice_id,
// owner_id) without threading a *slog.Logger through every signature.
package zlog

import (
	"log/slog"
	"os"
)

type Config struct {
	Level   string
	Service string
}

func New(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug", "Debug":
		level = slog.LevelDebug
	case "warn", "Warn":
		level = slog.LevelWarn
	case "error", "Error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)

	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger
}
