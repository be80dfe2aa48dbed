package crypto

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu sync.RWMutex
	base  = logrus.StandardLogger()
)

// SetLogger routes the package's log output through l. Pass nil to go back
// to the logrus standard logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logMu.Lock()
	base = l
	logMu.Unlock()
}

func currentLogger() *logrus.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return base
}

// LoggerHelper provides standardized logging functionality for the crypto package
type LoggerHelper struct {
	function string
	fields   logrus.Fields
}

// NewLogger creates a new logger helper with standardized fields
func NewLogger(function string) *LoggerHelper {
	return &LoggerHelper{
		function: function,
		fields: logrus.Fields{
			"function": function,
			"package":  "crypto",
		},
	}
}

// WithField adds a custom field to the logger
func (l *LoggerHelper) WithField(key string, value interface{}) *LoggerHelper {
	l.fields[key] = value
	return l
}

// WithFields adds multiple custom fields to the logger
func (l *LoggerHelper) WithFields(fields logrus.Fields) *LoggerHelper {
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

// WithError adds error information to the logger
func (l *LoggerHelper) WithError(err error, errorType, operation string) *LoggerHelper {
	if err != nil {
		l.fields["error"] = err.Error()
	}
	l.fields["error_type"] = errorType
	l.fields["operation"] = operation
	return l
}

func (l *LoggerHelper) entry() *logrus.Entry {
	return currentLogger().WithFields(l.fields)
}

// Debug logs a debug message
func (l *LoggerHelper) Debug(message string) { l.entry().Debug(message) }

// Info logs an info message
func (l *LoggerHelper) Info(message string) { l.entry().Info(message) }

// Warn logs a warning message
func (l *LoggerHelper) Warn(message string) { l.entry().Warn(message) }

// Error logs an error message
func (l *LoggerHelper) Error(message string) { l.entry().Error(message) }

// SecureFieldHash returns a short preview of key material for logging.
// At most the first 4 bytes are shown.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	preview := "nil"
	if len(data) > 0 {
		n := 4
		if len(data) < n {
			n = len(data)
		}
		preview = fmt.Sprintf("%x", data[:n])
		if len(data) > n {
			preview += "..."
		}
	}

	return logrus.Fields{
		name + "_preview": preview,
		name + "_size":    len(data),
	}
}
