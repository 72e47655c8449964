// Package logger configures the process-wide zerolog logger and hands out
// component-scoped child loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
	mu   sync.RWMutex
)

// Options controls logger initialization
type Options struct {
	Level  string    // debug, info, warn, error; defaults to info
	Pretty bool      // human-readable console output instead of JSON
	Output io.Writer // defaults to os.Stderr
}

// Init replaces the base logger. It is safe to call more than once.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(opts.Level))

	mu.Lock()
	base = l
	mu.Unlock()
}

// ParseLevel maps a level name to a zerolog level, falling back to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Get returns the current base logger
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger tagged with the component name
func WithComponent(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
