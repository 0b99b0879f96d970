// Package dlog is a small leveled logger.  Every line has the form
//
//     2026/10/15 10:04:05 WARN  | memcache        | shard 2 is invalid
//
// and goes through a console writer which may buffer output (see
// ConfigureConsole).
package dlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/gomemcache/errors"
)

type Level int

const (
	ERROR Level = iota
	WARNING
	INFO
	DEBUG
)

func (l Level) String() string {
	switch l {
	case ERROR:
		return "ERROR"
	case WARNING:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name (debug, info, warn/warning, error) into a
// Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, errors.Newf(
			"invalid log level: %s. must be one of debug, info, warn, error",
			level)
	}
}

var (
	consoleMu sync.RWMutex
	// The default console is assumed to be os.Stderr, but tests can override.
	console io.Writer = newBufferedConsole(os.Stderr, 0, 0)
)

// ConfigureConsole replaces the console writer.  A positive bufferSize
// buffers output, flushed at least every maxFlushInterval.
func ConfigureConsole(
	w io.Writer,
	bufferSize int,
	maxFlushInterval time.Duration) {

	consoleMu.Lock()
	defer consoleMu.Unlock()
	console = newBufferedConsole(w, bufferSize, maxFlushInterval)
}

// Flush forces buffered console output out.
func Flush() error {
	consoleMu.RLock()
	defer consoleMu.RUnlock()
	if cb, ok := console.(*bufferedConsoleT); ok {
		return cb.Flush()
	}
	return nil
}

type consoleWriter struct{}

func (consoleWriter) Write(b []byte) (int, error) {
	consoleMu.RLock()
	w := console
	consoleMu.RUnlock()
	return w.Write(b)
}

// A named, leveled logger.  Loggers are safe for concurrent use.
type Logger struct {
	name string

	mu    sync.RWMutex
	level Level

	logger *log.Logger
}

// New returns a logger for the given component name, at INFO level.
func New(name string) *Logger {
	return &Logger{
		name:   name,
		level:  INFO,
		logger: log.New(consoleWriter{}, "", log.Ldate|log.Ltime),
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(WARNING, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level > l.Level() {
		return
	}
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", level, l.name, message)
}
