// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu  sync.Mutex
	std = newStd()
)

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init initializes the logger. Records go to stderr so that commands
// writing JSON to stdout stay machine-readable.
func Init() {
	mu.Lock()
	defer mu.Unlock()

	std = newStd()
}

// SetOutput sets the output for all levels
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	std.SetOutput(w)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	mu.Lock()
	defer mu.Unlock()

	std.SetLevel(parseLevel(levelStr))
}

// Level reports the active level as one of the Level constants.
func Level() int {
	switch std.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

func parseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithField returns an entry carrying a structured field, for call sites
// that want key/value context instead of a formatted message.
func WithField(key string, value interface{}) *logrus.Entry {
	return std.WithField(key, value)
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	std.Debugf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	std.Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	std.Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	std.Errorf(format, v...)
}
