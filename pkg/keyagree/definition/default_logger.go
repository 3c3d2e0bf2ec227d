package definition

import (
	plog "github.com/prometheus/common/log"
)

// DefaultLogger is the logger used when no Logger collaborator is
// supplied. It wraps prometheus/common/log, the same package the teacher
// imports directly in its transport layer, so Debugf can be toggled
// without touching the global prometheus logger configuration.
type DefaultLogger struct {
	debug bool
}

// NewDefaultLogger builds a DefaultLogger with debug output disabled.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{debug: false}
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	plog.Infof(format, v...)
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	plog.Warnf(format, v...)
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	plog.Errorf(format, v...)
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		plog.Debugf(format, v...)
	}
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	return l.debug
}
