package logger

import (
	"io"
	"log/slog"
)

// Option configures New.
type Option func(*settings)

type settings struct {
	level   slog.Level
	format  format
	source  bool
	writers []io.Writer
	redact  []string
}

type format int

const (
	formatText format = iota
	formatJSON
	formatPretty
)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the charmbracelet/log terminal handler. It takes
// precedence over WithJSON.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		if pretty {
			s.format = formatPretty
		}
	}
}

// WithJSON selects the slog JSON handler, used for log files.
func WithJSON(json bool) Option {
	return func(s *settings) {
		if json && s.format != formatPretty {
			s.format = formatJSON
		}
	}
}

// WithWriter sets the destination. Several writers are combined with
// io.MultiWriter. The default is os.Stdout.
func WithWriter(w ...io.Writer) Option {
	return func(s *settings) {
		s.writers = w
	}
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}

// WithRedactKeys masks the values of additional attribute keys on top of
// DefaultRedactKeys.
func WithRedactKeys(keys ...string) Option {
	return func(s *settings) {
		s.redact = append(s.redact, keys...)
	}
}
