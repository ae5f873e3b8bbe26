package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/vk/circuitgrid/internal/config"
)

// newLogger builds the process logger from the log settings. Levels that do
// not parse fall back to info, and every format other than json is text.
// Records carry the design name when one is given, and durations are
// rendered as strings in both formats. The global logger is left alone.
func newLogger(outW io.Writer, s config.App, designName string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindDuration {
				return slog.String(a.Key, a.Value.Duration().Round(time.Microsecond).String())
			}
			return a
		},
	}

	var handler slog.Handler
	if s.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}

	logger := slog.New(handler)
	if designName != "" {
		logger = logger.With("design", designName)
	}
	return logger
}
