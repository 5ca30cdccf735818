// Package observability provides logging initialization.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/stolasapp/lapor/internal/config"
)

// InitSlog initializes a logger with the given config. When running in a
// terminal, it uses a human-readable text format; otherwise it uses JSON for
// structured logging. Source locations are included outside production.
func InitSlog(cfg config.Config) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stdin.Fd())), cfg)
}

func newLogger(w io.Writer, text bool, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: !cfg.IsProduction(),
		Level:     toLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func toLogLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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
