package logger

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger provides structured logging with levels.
// The zero value logs text to stderr at LevelDebug and above.
type Logger struct {
	MinLevel LogLevel
	mu       sync.Mutex
	base     *logrus.Logger
}

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var logrusLevels = map[LogLevel]logrus.Level{
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}
