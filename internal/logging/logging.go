// Package logging configures structured logging for cogito.
//
// All packages log through zerolog. Setup installs the global logger once at
// startup; components obtain tagged sub-loggers via Component so every event
// carries a "component" field.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global zerolog logger.
//
// level is one of trace, debug, info, warn, error (case-insensitive; unknown
// values fall back to info). When file is non-empty, all output is redirected
// there without color so interactive surfaces (the monitor TUI) stay clean;
// otherwise a console writer on stderr is used.
func Setup(level, file string) error {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writer := zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.TimeOnly}
		logger := zerolog.New(writer).With().Timestamp().Logger()
		zerolog.DefaultContextLogger = &logger
		log.Logger = logger
		return nil
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	logger := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	return nil
}

// Component returns a logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Nop returns a disabled logger for tests and optional dependencies.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
