// Package logger builds the *slog.Logger used throughout chatgate.
//
// Every logger masks credential-bearing attributes (see DefaultRedactKeys)
// regardless of handler, so provider keys and gateway tokens never reach a
// terminal or log file.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New creates a logger. The zero configuration writes slog text at Info
// level to os.Stdout.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}

	var w io.Writer = os.Stdout
	if len(s.writers) == 1 {
		w = s.writers[0]
	} else if len(s.writers) > 1 {
		w = io.MultiWriter(s.writers...)
	}

	return slog.New(newRedactHandler(baseHandler(s, w), append(DefaultRedactKeys(), s.redact...)))
}

func baseHandler(s *settings, w io.Writer) slog.Handler {
	switch s.format {
	case formatPretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			ReportCaller:    s.source,
		})
	case formatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
