package logger

import (
	"fmt"
	"io"

	charm "github.com/charmbracelet/log"
)

// Level is the log level type used throughout calpipe.
type Level = charm.Level

// Log levels. Trace sits below charm's Debug level so that charm filters it
// out unless explicitly enabled.
const (
	TraceLevel Level = charm.DebugLevel - 4
	DebugLevel Level = charm.DebugLevel
	InfoLevel  Level = charm.InfoLevel
	WarnLevel  Level = charm.WarnLevel
	ErrorLevel Level = charm.ErrorLevel
)

// ErrInvalidLogLevel indicates an unrecognized log level string in the configuration.
var ErrInvalidLogLevel = fmt.Errorf("invalid log level")

// Logger wraps a charmbracelet logger with calpipe-specific helpers.
type Logger struct {
	*charm.Logger
}

// NewLogger creates a Logger from an existing charm logger.
func NewLogger(l *charm.Logger) *Logger {
	return &Logger{Logger: l}
}

// Trace logs a message below debug level.
func (l *Logger) Trace(msg interface{}, keyvals ...interface{}) {
	l.Logger.Log(TraceLevel, msg, keyvals...)
}

// GetLevelString returns the current log level as a string.
func (l *Logger) GetLevelString() string {
	if l.GetLevel() == TraceLevel {
		return "trace"
	}
	return l.GetLevel().String()
}

// WithWriter returns a copy of the logger writing to w in addition to
// retaining the current level and options.
func (l *Logger) WithWriter(w io.Writer) *Logger {
	sub := charm.NewWithOptions(w, charm.Options{Level: l.GetLevel()})
	return NewLogger(sub)
}

// ParseLevel parses a log level string from the configuration.
// An empty string defaults to info.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "":
		return InfoLevel, nil
	case "trace", "Trace":
		return TraceLevel, nil
	}
	level, err := charm.ParseLevel(s)
	if err != nil {
		return InfoLevel, fmt.Errorf("%w: '%s', supported levels are trace, debug, info, warn, error", ErrInvalidLogLevel, s)
	}
	return level, nil
}
