// Package logging configures the structured logger shared by the CLI,
// the HTTP server and background sync.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the logging surface the rest of the module depends on.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type logger struct {
	charm *charmlog.Logger
}

func (l *logger) Debug(msg string, keyvals ...any) { l.charm.Debug(msg, keyvals...) }
func (l *logger) Info(msg string, keyvals ...any)  { l.charm.Info(msg, keyvals...) }
func (l *logger) Warn(msg string, keyvals ...any)  { l.charm.Warn(msg, keyvals...) }
func (l *logger) Error(msg string, keyvals ...any) { l.charm.Error(msg, keyvals...) }

func (l *logger) With(keyvals ...any) Logger {
	return &logger{charm: l.charm.With(keyvals...)}
}

// Config selects level, output format and destination.
type Config struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// ParseLevel maps a level name onto a charm log level.
func ParseLevel(s string) (charmlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return charmlog.DebugLevel, nil
	case "", "info":
		return charmlog.InfoLevel, nil
	case "warn", "warning":
		return charmlog.WarnLevel, nil
	case "error":
		return charmlog.ErrorLevel, nil
	default:
		return charmlog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a Logger from cfg. Logs go to stderr unless Output is set.
func New(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	charm := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		charm.SetFormatter(charmlog.TextFormatter)
	case "json":
		charm.SetFormatter(charmlog.JSONFormatter)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return &logger{charm: charm}, nil
}

// Discard returns a Logger that writes nothing.
func Discard() Logger {
	return &logger{charm: charmlog.NewWithOptions(io.Discard, charmlog.Options{})}
}
