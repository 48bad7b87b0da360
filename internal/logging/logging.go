// Package logging contains a small leveled logger used by every component
// of the streaming pipeline. It is modeled after the level-filtered,
// environment-configured logger in lanikai/alohartc's internal/logging
// package, trimmed to the levels this repo actually emits.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Level is a logging verbosity level. Higher values are more verbose.
type Level int

// Levels, from least to most verbose.
const (
	Error Level = iota
	Warn
	Info
	Debug
)

var levelNames = map[Level]string{
	Error: "ERROR",
	Warn:  "WARN",
	Info:  "INFO",
	Debug: "DEBUG",
}

var levelColors = map[Level]*color.Color{
	Error: color.New(color.FgRed, color.Bold),
	Warn:  color.New(color.FgYellow),
	Info:  color.New(color.FgGreen),
	Debug: color.New(color.FgCyan),
}

func parseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR", "E":
		return Error, true
	case "WARN", "WARNING", "W":
		return Warn, true
	case "INFO", "I":
		return Info, true
	case "DEBUG", "D":
		return Debug, true
	default:
		return 0, false
	}
}

// envVar is the RUST_LOG-style level filter named in spec.md section 6.
const envVar = "LVLOG"

var defaultLevel = Info

func init() {
	if v, ok := parseLevel(os.Getenv(envVar)); ok {
		defaultLevel = v
	}
}

// Logger is a tag-scoped, leveled logger writing to stderr.
type Logger struct {
	tag   string
	level Level
}

// New returns a Logger tagged with component, e.g. "media-sender".
func New(component string) *Logger {
	return &Logger{tag: component, level: defaultLevel}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	c := levelColors[level]
	prefix := fmt.Sprintf("%s [%s] %-5s ", time.Now().Format("15:04:05.000"), l.tag, levelNames[level])
	_, _ = c.Fprintf(os.Stderr, prefix+format+"\n", args...)
}

// Errorf logs at Error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(Error, format, args...) }

// Warnf logs at Warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(Warn, format, args...) }

// Infof logs at Info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(Info, format, args...) }

// Debugf logs at Debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(Debug, format, args...) }
