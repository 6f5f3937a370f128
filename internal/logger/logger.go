package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"noteflow/internal/config"
)

var (
	singleton *slog.Logger
	once      sync.Once
)

// Init builds the process logger from cfg. Only the first call configures
// it; later calls return the same instance.
func Init(cfg config.Config) (*slog.Logger, error) {
	once.Do(func() {
		singleton = slog.New(NewHandler(os.Stdout, cfg.LogFormat, cfg.LogLevel))
		slog.SetDefault(singleton)
	})
	return singleton, nil
}

// NewHandler returns a text or JSON handler writing to w. Unknown formats
// fall back to JSON and unknown levels to info.
func NewHandler(w io.Writer, format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// L returns the process logger, or slog.Default before Init has run.
func L() *slog.Logger {
	if singleton == nil {
		return slog.Default()
	}
	return singleton
}
