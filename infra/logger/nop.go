// Package logger provides the zerolog backed Logger used by every component
// and a no-op implementation for tests.
package logger

import corelogger "github.com/kilianp07/parkctl/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// Fields mirrors the core structured fields type.
type Fields = corelogger.Fields

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Debugw(string, Fields) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
