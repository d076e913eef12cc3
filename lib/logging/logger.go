// Package logging provides leveled loggers with a consistent format for all
// packages of the module.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// Level controls which messages a logger emits.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel converts a string level to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger
// --------------------------------------------------------------------------

// Logger is the logging interface used throughout the module.
type Logger interface {
	SetLevel(level Level)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type pkgLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

var defaultLevel atomic.Int32

func init() {
	defaultLevel.Store(int32(LevelInfo))
}

// SetDefaultLevel sets the level that new loggers start with. Existing
// loggers are not affected.
func SetDefaultLevel(level Level) {
	defaultLevel.Store(int32(level))
}

// DefaultLevel returns the level that new loggers start with.
func DefaultLevel() Level {
	return Level(defaultLevel.Load())
}

// New creates a logger for the given package name.
func New(pkgName string) Logger {
	l := &pkgLogger{
		name:   pkgName,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
	l.level.Store(defaultLevel.Load())
	return l
}

func (l *pkgLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *pkgLogger) Debugf(format string, args ...interface{}) {
	if Level(l.level.Load()) >= LevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *pkgLogger) Infof(format string, args ...interface{}) {
	if Level(l.level.Load()) >= LevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *pkgLogger) Warnf(format string, args ...interface{}) {
	if Level(l.level.Load()) >= LevelWarn {
		l.log("WARN", format, args...)
	}
}

func (l *pkgLogger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

// log formats and writes a log message. this internal helper is used by the
// public methods
func (l *pkgLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}
