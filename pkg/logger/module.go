package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/alex-galey/docking-mcp/pkg/config"
	"go.uber.org/fx"
)

// NewSlogLogger builds the process logger. Output goes to stderr because
// stdout carries the MCP stdio transport.
func NewSlogLogger(cfg *config.ServerConfig, buffer *RingBuffer) *slog.Logger {
	return newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat, buffer)
}

func newLogger(w io.Writer, levelName, format string, buffer *RingBuffer) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if buffer != nil {
		handler = newBufferingHandler(handler, buffer)
	}

	return slog.New(handler)
}

var Module = fx.Module("logger",
	fx.Provide(func(cfg *config.ServerConfig) *RingBuffer { return NewRingBuffer(cfg.LogBufferSize) }),
	fx.Provide(NewSlogLogger),
)
