package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance shared by all uoft-tools binaries.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.WarnLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetVerbosity maps the --debug/--trace CLI flags onto a log level.
// trace implies debug; with neither set only warnings and errors are shown.
func SetVerbosity(debug, trace bool) {
	switch {
	case trace:
		Logger.SetLevel(logrus.TraceLevel)
	case debug:
		Logger.SetLevel(logrus.DebugLevel)
	default:
		Logger.SetLevel(logrus.WarnLevel)
	}
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger with multiple fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithApp returns a logger scoped to one tool's settings (aruba, librenms, ...)
func WithApp(app string) *logrus.Entry {
	return Logger.WithField("app", app)
}

// WithHost returns a logger with remote API host context
func WithHost(host string) *logrus.Entry {
	return Logger.WithField("host", host)
}

// WithMAC returns a logger with MAC address context
func WithMAC(mac string) *logrus.Entry {
	return Logger.WithField("mac", mac)
}

// Trace logs a trace message
func Trace(args ...interface{}) {
	Logger.Trace(args...)
}

// Tracef logs a formatted trace message
func Tracef(format string, args ...interface{}) {
	Logger.Tracef(format, args...)
}

// Debug logs a debug message
func Debug(args ...interface{}) {
	Logger.Debug(args...)
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Info logs an info message
func Info(args ...interface{}) {
	Logger.Info(args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warn logs a warning message
func Warn(args ...interface{}) {
	Logger.Warn(args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Error logs an error message
func Error(args ...interface{}) {
	Logger.Error(args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
