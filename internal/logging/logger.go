// Package logging provides structured logging for salesdw.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger instance.
var Logger zerolog.Logger

// Config holds logging configuration.
type Config struct {
	Level  string
	Pretty bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Pretty: true}
}

// Init initializes the global logger with the given configuration.
// Unknown levels fall back to info.
func Init(cfg Config) {
	var output io.Writer = os.Stderr
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Debug returns a debug level event.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info returns an info level event.
func Info() *zerolog.Event { return Logger.Info() }

// Warn returns a warning level event.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error returns an error level event.
func Error() *zerolog.Event { return Logger.Error() }

// Fatal returns a fatal level event.
func Fatal() *zerolog.Event { return Logger.Fatal() }

func init() {
	Init(DefaultConfig())
}
