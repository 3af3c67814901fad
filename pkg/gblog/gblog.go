// Package gblog is a small leveled wrapper around the standard library log
// package. The teacher codebase this module descends from never reaches
// for a third-party logging library, so neither does this one.
package gblog

import (
	"io"
	"log"
	"os"
)

// Level orders log severities; a Logger drops any message below its
// configured Level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger wraps *log.Logger with a minimum level filter.
type Logger struct {
	level Level
	std   *log.Logger
}

// New constructs a Logger writing to w at or above level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, std: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger writing to stdout at LevelInfo, matching the
// package-level logger NornicDB's apoc/log keeps.
func Default() *Logger {
	return New(os.Stdout, LevelInfo)
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.std.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

// SetLevel changes the minimum level logged.
func (l *Logger) SetLevel(level Level) { l.level = level }
