// Package logging builds the service's zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger in dev and a JSON logger with
// caller information everywhere else.
func New(service, env, level string) zerolog.Logger {
	return newWithWriter(os.Stdout, service, env, level)
}

func newWithWriter(w io.Writer, service, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			Level(lvl).
			With().
			Timestamp().
			Str("service", service).
			Logger()
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Str("service", service).
		Logger()
}
