// Package definition holds the small set of ambient concerns every
// overlay component is handed explicitly: the logger and the tunable
// defaults, mirroring the teacher's own definition package.
package definition

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every overlay component depends on.
// Kept deliberately small, the same shape the teacher's own Logger
// interface exposes.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

// DefaultLogger backs Logger with logrus.
type DefaultLogger struct {
	entry *logrus.Logger
}

// NewDefaultLogger returns a logger writing to stderr at INFO level.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{entry: l}
}

// ParseLevel maps the CLI --log-level values onto a logrus level.
// Unknown values fall back to INFO.
func ParseLevel(level string) logrus.Level {
	switch level {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	case "CRITICAL":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// ValidLevel reports whether level is one of the five accepted names.
func ValidLevel(level string) bool {
	switch level {
	case "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL":
		return true
	default:
		return false
	}
}

// SetLevel adjusts the logger's verbosity.
func (l *DefaultLogger) SetLevel(level logrus.Level) {
	l.entry.SetLevel(level)
}

func (l *DefaultLogger) Debug(v ...interface{})                 { l.entry.Debug(v...) }
func (l *DefaultLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }
func (l *DefaultLogger) Info(v ...interface{})                  { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                  { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                 { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }
func (l *DefaultLogger) Fatal(v ...interface{})                 { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

// NoopLogger discards everything except Fatal/Fatalf, which print to
// stdout without exiting; useful in tests that don't want the
// conversation cluttered but still need a Logger value.
type NoopLogger struct{}

func (NoopLogger) Debug(v ...interface{})                 {}
func (NoopLogger) Debugf(format string, v ...interface{}) {}
func (NoopLogger) Info(v ...interface{})                  {}
func (NoopLogger) Infof(format string, v ...interface{})  {}
func (NoopLogger) Warn(v ...interface{})                  {}
func (NoopLogger) Warnf(format string, v ...interface{})  {}
func (NoopLogger) Error(v ...interface{})                 {}
func (NoopLogger) Errorf(format string, v ...interface{}) {}
func (NoopLogger) Fatal(v ...interface{})                 { fmt.Println(v...) }
func (NoopLogger) Fatalf(format string, v ...interface{}) { fmt.Printf(format+"\n", v...) }
