// Package logger provides structured logging configuration for the application.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format (production default)
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in human-readable text format (development default)
	FormatText LogFormat = "text"
)

// Options controls how New builds the logger.
type Options struct {
	Level   string
	Format  string
	Service string
	Output  io.Writer
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT.
//
// LOG_LEVEL options: debug, info, warn, error (default: info)
// LOG_FORMAT options: json, text (default: json)
func FromEnv(service string) Options {
	return Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: service,
	}
}

// New creates a structured logger tagged with the service name.
func New(opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch ParseFormat(opts.Format) {
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	l := slog.New(handler)
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}
	return l
}

// ParseLevel maps a LOG_LEVEL value to a slog.Level
func ParseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
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

// ParseFormat maps a LOG_FORMAT value to a LogFormat
func ParseFormat(v string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(v), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// SetDefault sets the given logger as the default slog logger
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
