// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as written in the config file.
type LogLevel string

// Level names accepted by Setup. Unknown names fall back to info.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer
	Pretty bool

	// Output defaults to os.Stderr
	Output io.Writer

	// Service tags every entry when set
	Service string
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup installs the configured logger as zerolog's global logger and
// returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logContext := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		logContext = logContext.Str("service", cfg.Service)
	}
	log.Logger = logContext.Logger()
	return log.Logger
}

// parseLevel is case-insensitive and accepts "warning" as an alias.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns the global logger tagged with component. Components in
// use: httpcache, httpcache-client, ratelimit, warm and proxy. Cache decisions
// log at debug, origin failures and rate limit blocks at warn.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
