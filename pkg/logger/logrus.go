package logger

import (
	log "github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger (or entry with preset fields) to Logger.
type LogrusLogger struct {
	entry *log.Entry
}

// NewLogrusLogger wraps l. A nil l uses the logrus standard logger.
func NewLogrusLogger(l *log.Logger) *LogrusLogger {
	if l == nil {
		l = log.StandardLogger()
	}
	return &LogrusLogger{entry: log.NewEntry(l)}
}

// WithField returns a logger which attaches key=value to every message.
func (l *LogrusLogger) WithField(key string, value interface{}) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *LogrusLogger) Debug(format string, args ...interface{})   { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Info(format string, args ...interface{})    { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warning(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Error(format string, args ...interface{})   { l.entry.Errorf(format, args...) }

// Close is a no-op; logrus output is owned by the caller.
func (l *LogrusLogger) Close() error { return nil }

var _ Logger = (*LogrusLogger)(nil)
