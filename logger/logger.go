package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init sets up the process-wide zerolog logger with structured JSON output.
// Unknown levels fall back to info.
func Init(level, service string) {
	InitWithWriter(os.Stdout, level, service)
}

func InitWithWriter(w io.Writer, level, service string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	base = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a child logger tagged with a component name.
func With(component string) *zerolog.Logger {
	l := base.With().Str("component", component).Logger()
	return &l
}

func IsDebugEnabled() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}

func Debugf(format string, v ...any) {
	base.Debug().Msgf(format, v...)
}
