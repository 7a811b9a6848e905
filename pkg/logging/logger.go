// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `yaml:"pretty"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
// Loggers obtained from NewLogger after Setup inherit its output and level.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to zerolog.Level, defaulting to Info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-request and per-page detail
//   - request URLs, page numbers and item counts
//   - resolver cache hits/misses
//   - rate limit updates with healthy quota
//
// Info: run progress
//   - player resolved, history fetched
//   - throttling sleeps (quota nearly exhausted)
//
// Warn: conditions that don't stop a player
//   - unparseable rate limit headers
//   - error status codes seen by the client
//   - cache read/write failures
//
// Error: a player is dropped from the results
//   - resolution failures (not found, ambiguous, unexpected status)
//   - pagination failures (malformed page, transport error)
//
// Context Fields:
//   - component: emitting package
//   - player: player name as typed
//   - player_id: resolved identifier
//   - page: zero-based history page
//   - remaining: X-Ratelimit-Remaining value
//   - sleep: throttling duration
//   - kind: error kind from pkg/cotd
