// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger for the given environment. DEV gets a human readable
// console writer, every other environment gets JSON lines on out.
func New(env, level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Install replaces the global logger used by packages that log through
// github.com/rs/zerolog/log.
func Install(logger zerolog.Logger) {
	log.Logger = logger
}
