package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Setup configures the default slog logger. format "json" selects the JSON
// handler; anything else uses tint's coloured text output.
func Setup(level, format string) *slog.Logger {
	return setup(os.Stdout, level, format)
}

func setup(w io.Writer, level, format string) *slog.Logger {
	var handler slog.Handler
	lvl := ParseLevel(level)
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: lvl})
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug|warn|error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
