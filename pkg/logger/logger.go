// Package logger provides the process-wide zerolog logger.
package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu           sync.RWMutex
	globalLogger zerolog.Logger
	once         sync.Once
)

// GetLogger returns the global logger instance. Until New is called it writes
// to stderr in console format at info level.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}

		mu.Lock()
		globalLogger = zerolog.New(consoleWriter).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// New constructs a zerolog logger from level and format ("json" or "console"),
// installs it as the global logger and returns it.
func New(level, format string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var writer zerolog.Logger
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		writer = zerolog.New(w).With().Timestamp().Logger()
	case "console", "":
		consoleWriter := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
		writer = zerolog.New(consoleWriter).With().Timestamp().Logger()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	// Make sure the default initialization never overwrites this logger.
	once.Do(func() {})

	mu.Lock()
	globalLogger = writer.Level(lvl)
	l := globalLogger
	mu.Unlock()

	return l, nil
}
