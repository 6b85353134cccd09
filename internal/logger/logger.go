// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: os.Stderr,
	}
}

// FromStrings builds a Config from LOG_LEVEL / LOG_FORMAT style values.
func FromStrings(level, format string) (Config, error) {
	cfg := DefaultConfig()
	lvl, err := ParseLevel(level)
	if err != nil {
		return cfg, err
	}
	cfg.Level = lvl
	switch f := strings.ToLower(format); f {
	case "json", "text":
		cfg.Format = f
	case "":
	default:
		return cfg, fmt.Errorf("unknown log format %q", format)
	}
	return cfg, nil
}

// Init builds a handler from cfg and installs it as the default logger.
func Init(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLevel accepts debug, info, warn/warning and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func ForComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
