package log

import (
	"log/slog"
	"os"
	"sync"
)

// Logger provides centralized logging for the entire application
type Logger struct {
	logger *slog.Logger
	file   *os.File
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// init creates the global logger with console output by default
func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	globalLogger = &Logger{
		logger: slog.New(handler),
		file:   os.Stdout,
	}
}

// SetFileOutput redirects the global logger to the specified file
func SetFileOutput(filename string) error {
	logger, err := NewLogger(filename)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil && globalLogger.file != os.Stdout {
		globalLogger.file.Close()
	}
	globalLogger = logger
	return nil
}

// NewLogger creates a logger that appends to the specified file
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   slog.TimeKey,
					Value: slog.StringValue(a.Value.Time().Format("2006/01/02 15:04:05.000000")),
				}
			}
			return a
		},
	})

	return &Logger{
		logger: slog.New(handler),
		file:   file,
	}, nil
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Standard logging methods
func Debug(msg string, args ...any) {
	if l := current(); l != nil {
		l.logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if l := current(); l != nil {
		l.logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if l := current(); l != nil {
		l.logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if l := current(); l != nil {
		l.logger.Error(msg, args...)
	}
}

// Close closes the global logger's file
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil && globalLogger.file != os.Stdout {
		globalLogger.file.Close()
	}
}
