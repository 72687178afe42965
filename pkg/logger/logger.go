package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the slog handler. Production defaults to JSON at info level.
type Options struct {
	Env    string
	Level  string
	Format string
	Output io.Writer
}

var defaultLogger *slog.Logger

func Init(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := parseLevel(opts.Level, opts.Env)
	handlerOpts := &slog.HandlerOptions{Level: level}

	format := opts.Format
	if format == "" {
		format = "text"
		if opts.Env == "production" {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	defaultLogger = slog.New(handler).With("service", "credential-vault")
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func parseLevel(level, env string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init(Options{Env: "development"})
	}
	return defaultLogger
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
