// Package logger defines the logging contract shared by the admission core and
// its adapters. Implementations live in infra/logger.
package logger

// Fields are structured key/value pairs attached to a log line.
type Fields = map[string]any

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a decision with structured fields such as the vehicle,
	// the facility and the tick.
	Debugw(msg string, fields Fields)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
