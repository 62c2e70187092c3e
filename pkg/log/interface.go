// Package log provides the structured logging interface used across svmgrid.
//
// The Logger interface mirrors log/slog's method set so that the default
// implementation can sit directly on slog while tests swap in TestLogger.
// Attribute keys for classifier workflows live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("search").With(
//	    log.CostKey, 8.0,
//	    log.GammaKey, 0.125,
//	)
//	logger.Info("Cross validation finished",
//	    log.AccuracyKey, 0.91,
//	    log.DurationMsKey, 5432,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error passed as a value under
// ErrAttrKey gets its stack trace attached by ErrFmtHandler.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	// Warnings indicate conditions that don't stop the current operation,
	// e.g. an engine parameter diagnostic.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("Writing problem dump failed",
	//       log.ErrAttrKey, err,
	//       log.PathKey, path,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Tests inject TestLoggerProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
