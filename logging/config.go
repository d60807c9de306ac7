// Package logging sets up slog to write to the console and to weekly rotating files
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/geometax/refdata/config"
)

// Options controls where and how much the installer logs
type Options struct {
	Dir            string
	Env            string
	Level          string // explicit LOG_LEVEL, empty picks the env default
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // defaults to os.Stdout
}

// parseLogLevel maps a LOG_LEVEL string to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
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

// ConsoleLogLevel picks the console level. Tests stay quiet whatever the
// override, prod and staging default to warn, everything else to info.
func ConsoleLogLevel(env, level string) slog.Level {
	if env == config.EnvTest {
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	if env == config.EnvProduction || env == config.EnvStaging {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// FileLogLevel is always debug; the file is the full record of a run
func FileLogLevel() slog.Level {
	return slog.LevelDebug
}

// NewLogger builds a logger writing text to the console and JSON to a
// RotatingWriter under opts.Dir. The returned closer releases the log file.
// If the log directory cannot be used the logger falls back to console only.
func NewLogger(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: ConsoleLogLevel(opts.Env, opts.Level),
	})

	if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "dir", opts.Dir, "error", err)
		return logger, nopCloser{}
	}

	writer := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if deleted, err := writer.Cleanup(); err == nil && deleted > 0 {
		// Log cleanup goes to the console only to avoid recursion
		slog.New(consoleHandler).Info("Cleaned up old log files", "count", deleted)
	}
	writer.startCleanup()

	fileHandler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: FileLogLevel(),
	})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
