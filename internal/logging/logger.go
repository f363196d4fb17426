// Package logging builds the process zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Logger = zerolog.Logger

type Fields map[string]interface{}

func New(env string) Logger {
	level := zerolog.InfoLevel
	if env == "local" {
		level = zerolog.DebugLevel
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// Nop discards everything; used by tests and optional loggers.
func Nop() Logger {
	return zerolog.Nop()
}

func With(logger Logger, fields Fields) Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
