// Package logging holds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Config selects the minimum level, the format (json or console) and the
// destination, which defaults to stderr.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var current atomic.Pointer[zerolog.Logger]

// Init installs a logger built from cfg. Until it is called, an info-level
// JSON logger on stderr is used.
func Init(cfg Config) {
	l := New(cfg)
	current.Store(&l)
}

// New builds a logger without installing it.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "quake-proxy").
		Logger()
}

// ParseLevel maps a level name onto zerolog. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// Logger returns the installed logger.
func Logger() zerolog.Logger {
	if l := current.Load(); l != nil {
		return *l
	}
	l := New(Config{})
	current.CompareAndSwap(nil, &l)
	return *current.Load()
}

func Debug() *zerolog.Event {
	l := Logger()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

// Fatal exits the process after the event is written.
func Fatal() *zerolog.Event {
	l := Logger()
	return l.Fatal()
}
