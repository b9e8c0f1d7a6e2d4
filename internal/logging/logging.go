package logging

import (
	"log/slog"
	"os"
)

// New builds the JSON logger used by all binaries.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}
