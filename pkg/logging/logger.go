// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/Sternrassler/parking-feed/pkg/feed"
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

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
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

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// RedactURL returns rawURL with its first path segment masked. The feed
// endpoint carries the access key there, e.g.
// http://openapi.seoul.go.kr:8088/<key>/json/SearchParkingInfoRealtime/1/1000/
// becomes http://openapi.seoul.go.kr:8088/***/json/SearchParkingInfoRealtime/1/1000/.
// Userinfo and query strings are dropped as well.
func RedactURL(rawURL string) string {
	u, err := url.Parse(feed.NormalizeURL(rawURL))
	if err != nil {
		return "***"
	}

	segments := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		segments[0] = "***"
	}

	return u.Scheme + "://" + u.Host + "/" + strings.Join(segments, "/")
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, TTL)
//   - Busy rejections and cancelled runs
//   - Stage transitions inside a pipeline run
//   - Skipped rows (also counted at Warn once per decode pass)
//
// Info: Normal operation events
//   - Pipeline run completed (facility count, duration)
//   - Pagination progress
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Malformed rows dropped by the decoder
//   - Cache errors (fallback to direct request)
//   - Readiness check failures
//
// Error: Error conditions requiring attention
//   - Network failures and non-200 responses
//   - Envelope/row shape violations
//   - Failed pipeline runs
//   - Configuration errors
//
// Context Fields:
//   - url: redacted request URL (never the raw one)
//   - status_code: HTTP status code
//   - duration: request or run duration
//   - error_class: network, client, server, status, body_limit
//   - run_id: pipeline run identifier
//   - stage: pipeline stage (fetch, decode)
//   - skipped: rows dropped during decoding
