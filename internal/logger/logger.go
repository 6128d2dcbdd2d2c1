// Package logger provides leveled, thread-safe logging for the task service.
//
// All output lines are prefixed with [HH:MM:SS] timestamps and a level tag.
// Color is enabled automatically when writing to a TTY and respects NO_COLOR.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger is the logging interface consumed by the engine components.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Log level ordering used for filtering.
const (
	levelDebug int = iota
	levelInfo
	levelWarn
	levelError
)

// Console logs to a writer with timestamps, level filtering and thread safety.
type Console struct {
	writer   io.Writer
	level    int
	useColor bool
	mu       sync.Mutex
}

// NewConsole creates a Console logger writing to w.
// If w is nil, messages are silently discarded.
// level is one of debug, info, warn, error (case-insensitive); empty or
// unknown values default to info.
func NewConsole(w io.Writer, level string) *Console {
	return &Console{
		writer:   w,
		level:    parseLevel(level),
		useColor: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that supports color output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseLevel converts a level name to its numeric value, defaulting to info.
func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// ValidLevel reports whether level names a supported log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Debugf logs a debug-level message.
func (c *Console) Debugf(format string, args ...interface{}) {
	c.logf(levelDebug, "DEBUG", format, args...)
}

// Infof logs an info-level message.
func (c *Console) Infof(format string, args ...interface{}) {
	c.logf(levelInfo, "INFO", format, args...)
}

// Warnf logs a warning-level message.
func (c *Console) Warnf(format string, args ...interface{}) {
	c.logf(levelWarn, "WARN", format, args...)
}

// Errorf logs an error-level message.
func (c *Console) Errorf(format string, args ...interface{}) {
	c.logf(levelError, "ERROR", format, args...)
}

func (c *Console) logf(level int, tag string, format string, args ...interface{}) {
	if c.writer == nil || level < c.level {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp, tag, message)

	if c.useColor {
		line = c.colorize(level, line)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.writer, line)
}

// colorize applies the per-level color to a complete log line.
func (c *Console) colorize(level int, line string) string {
	switch level {
	case levelDebug:
		return color.New(color.FgHiBlack).Sprint(line)
	case levelWarn:
		return color.New(color.FgYellow).Sprint(line)
	case levelError:
		return color.New(color.FgRed).Sprint(line)
	default:
		return line
	}
}

// Nop is a Logger that discards all messages. Useful in tests.
type Nop struct{}

func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}
