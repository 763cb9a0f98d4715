// Package logger provides a minimal slog-based logging wrapper. The terminal
// belongs to the chat UI, so records only ever go to a file or nowhere.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config describes logger settings. An empty File disables logging.
type Config struct {
	File  string
	Level string
}

var (
	mu   sync.RWMutex
	base = slog.New(slog.DiscardHandler)
	file *os.File
)

// Init opens the log file and installs the handler. Calling Init again
// replaces the previous file.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	closeFile()

	if cfg.File == "" {
		base = slog.New(slog.DiscardHandler)
		return nil
	}

	path := expandPath(cfg.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open log file: %w", err)
	}
	file = f
	base = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}))
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeFile()
	base = slog.New(slog.DiscardHandler)
	return err
}

func closeFile() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// L returns the current logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns the current logger with args attached.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Info and Warn log on the current logger for code that runs before a
// session logger exists.
func Info(msg string, args ...any) { L().Info(msg, args...) }
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
