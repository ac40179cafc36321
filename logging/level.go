package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log message. Levels are ordered such that a logger
// configured at a given level will emit messages at that level and above.
type Level int32

const (
	// DEBUG is the lowest severity level.
	DEBUG Level = iota
	// INFO is the default severity level.
	INFO
	// WARN indicates a potentially problematic situation.
	WARN
	// ERROR indicates a failure.
	ERROR
)

// String returns the human readable name of the level.
func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return "Unknown"
	}
}

// AsZap converts a Level to its zapcore equivalent.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelFromString parses a case-insensitive level name into a Level.
func LevelFromString(levelStr string) (Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// AtomicLevel is an atomically updatable Level, safe for concurrent reads and writes.
type AtomicLevel struct {
	level *int32
}

// NewAtomicLevelAt constructs an AtomicLevel initialized to the given level.
func NewAtomicLevelAt(level Level) AtomicLevel {
	val := int32(level)
	ret := AtomicLevel{level: &val}
	return ret
}

// Get returns the current level.
func (al AtomicLevel) Get() Level {
	return Level(atomic.LoadInt32(al.level))
}

// Set updates the current level.
func (al AtomicLevel) Set(level Level) {
	atomic.StoreInt32(al.level, int32(level))
}

// GlobalLogLevel is a zap AtomicLevel shared across all constructed zap loggers so that flipping
// it affects every Logger's AsZap output simultaneously.
var GlobalLogLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
