package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console, pretty).
	Format string

	// Output is the output destination (stdout, stderr).
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns the logging configuration used by the CLI tools.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a zerolog logger writing to the configured output.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	return NewLoggerWithWriter(cfg, outputWriter(cfg.Output))
}

// NewLoggerWithWriter creates a zerolog logger writing to w. The Output field of cfg
// is ignored.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}

	zctx := zerolog.New(w).With().Timestamp()
	if cfg.AddSource {
		zctx = zctx.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return zctx.Logger().Level(level)
}

func outputWriter(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel converts a string log level to zerolog.Level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent tags a logger with the emitting component.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithFetchContext adds catalog fetch fields to a logger.
func WithFetchContext(logger zerolog.Logger, topic string, minYear int) zerolog.Logger {
	return logger.With().
		Str("topic", topic).
		Int("min_year", minYear).
		Logger()
}

// WithStoreContext adds paper store fields to a logger.
func WithStoreContext(logger zerolog.Logger, backend, op string) zerolog.Logger {
	return logger.With().
		Str("backend", backend).
		Str("op", op).
		Logger()
}
