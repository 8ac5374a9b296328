// Package logger provides structured logging for starbot.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// New creates a new structured logger. Components derive their own
// loggers with .With().Str("component", ...).
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "starbot").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return zlog
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// LogServerStart logs server startup
func LogServerStart(l zerolog.Logger, addr, transport string) {
	l.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Str("transport", transport).
		Msg("starbot server starting")
}

// LogServerShutdown logs server shutdown
func LogServerShutdown(l zerolog.Logger, transport string) {
	l.Info().
		Str("event", "server_shutdown").
		Str("transport", transport).
		Msg("starbot server shutting down")
}

var (
	globalMu     sync.Mutex
	globalLogger *zerolog.Logger
)

// InitGlobalLogger initializes the global logger and zerolog's log.Logger.
func InitGlobalLogger(cfg Config) zerolog.Logger {
	l := New(cfg)
	globalMu.Lock()
	globalLogger = &l
	globalMu.Unlock()
	log.Logger = l
	return l
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() zerolog.Logger {
	globalMu.Lock()
	l := globalLogger
	globalMu.Unlock()
	if l == nil {
		// Initialize with defaults if not set
		return InitGlobalLogger(Config{Level: "info", Pretty: true})
	}
	return *l
}
