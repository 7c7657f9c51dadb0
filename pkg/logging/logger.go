// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

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
)

// Component names used in the "component" field.
const (
	ComponentClient     = "artic-client"
	ComponentPagination = "pagination"
	ComponentGrid       = "grid"
	ComponentRateLimit  = "ratelimit"
	ComponentCache      = "cache"
	ComponentTUI        = "tui"
)

// DefaultFile is where the terminal UI writes its logs.
const DefaultFile = "artic-grid.log"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup installs the global logger. An unknown level falls back to info.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stderr, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// OpenFile opens path for appending. The terminal UI owns stdout, so its
// logs go here instead.
func OpenFile(path string) (*os.File, error) {
	if path == "" {
		path = DefaultFile
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// ParseLevel maps a configured level onto zerolog. Only debug through
// error are accepted; "warning" is an alias of warn.
func ParseLevel(level LogLevel) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = string(LevelWarn)
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || lvl < zerolog.DebugLevel || lvl > zerolog.ErrorLevel {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", level)
	}
	return lvl, nil
}

// ValidLevel reports whether ParseLevel accepts level.
func ValidLevel(level LogLevel) bool {
	_, err := ParseLevel(level)
	return err == nil
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit, revalidation, TTL)
//   - Each page fetch (page, records received)
//   - Rate limit state updates (healthy)
//
// Info: Normal operation events
//   - Completed bulk crawls
//   - Startup and shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit throttling
//   - Cache errors (request goes to the API instead)
//   - 4xx/5xx responses
//
// Error: Error conditions requiring attention
//   - Failed page fetches ("Error fetching artworks")
//   - Failed bulk crawls
//   - Critical rate limit blocks
//
// Context Fields:
//   - component: see the Component constants
//   - endpoint: API path
//   - page: remote page number
//   - rows_needed: rows still needed by a lazy load
//   - target: bulk target count
//   - error_class: client, server, rate_limit, network, decode
//   - remaining: requests left in the rate limit window
