// Package logging wires [log/slog] to the application configuration and
// carries the run's logger through context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/andrewiankidd/crosspose-sub000/internal/config"
)

type ctxKey struct{}

var levels = map[string]slog.Level{
	config.LogLevelDebug: slog.LevelDebug,
	config.LogLevelInfo:  slog.LevelInfo,
	config.LogLevelWarn:  slog.LevelWarn,
	config.LogLevelError: slog.LevelError,
}

// Setup builds the process logger from cfg, writing to stderr so generated
// files and the conversion summary keep stdout to themselves. The logger is
// also installed as the slog default.
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter is Setup with an explicit sink, for tests.
func SetupWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.EffectiveLogLevel())}

	var handler slog.Handler
	if cfg.LogFormat == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a level name to its slog.Level; unknown names log at info.
func ParseLevel(level string) slog.Level {
	if l, ok := levels[level]; ok {
		return l
	}

	return slog.LevelInfo
}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts the run logger from ctx, falling back to the process
// default when no logger was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}
