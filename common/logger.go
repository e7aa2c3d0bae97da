// Package common provides shared constants, types, and utilities
// used across the ovpnctl application.
package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds configuration options for the logger.
type LogConfig struct {
	Level      string // debug, info, warn or error
	EnableFile bool
	MaxSizeMB  int // size threshold for rotation, default 5
	MaxBackups int // number of rotated files to keep, default 5
	MaxAgeDays int // age limit for rotated files, default 14
	Compress   bool
}

const (
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

var (
	loggerMu      sync.Mutex
	defaultLogger *slog.Logger
	fileSink      *lumberjack.Logger
)

// ParseLevel converts a configuration string into a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// isSymlink checks if a path is a symbolic link.
// Returns false if path doesn't exist (safe to create).
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// GetLogger returns the process-wide logger. Before InitLogger runs it
// logs to stderr at info level.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = slog.New(newColorHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return defaultLogger
}

// InitLogger initializes the logger with custom configuration.
// Should be called early in application startup.
func InitLogger(config LogConfig) error {
	level := ParseLevel(config.Level)
	handlers := []slog.Handler{
		newColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	var sink *lumberjack.Logger
	if config.EnableFile {
		logDir := GetLogDir()
		if logDir == "" {
			return fmt.Errorf("cannot determine log directory")
		}
		if isSymlink(logDir) {
			return fmt.Errorf("security error: log directory is a symlink")
		}
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return err
		}
		logPath := filepath.Join(logDir, LogFileName)
		if isSymlink(logPath) {
			return fmt.Errorf("security error: log file is a symlink")
		}
		sink = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    orDefault(config.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(config.MaxBackups, defaultMaxBackups),
			MaxAge:     orDefault(config.MaxAgeDays, defaultMaxAgeDays),
			Compress:   config.Compress,
		}
		handlers = append(handlers, slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))
	}

	logger := slog.New(multiHandler(handlers))

	loggerMu.Lock()
	if fileSink != nil {
		fileSink.Close()
	}
	fileSink = sink
	defaultLogger = logger
	loggerMu.Unlock()

	slog.SetDefault(logger)
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// CloseLogger releases the log file. Should be called on application shutdown.
func CloseLogger() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if fileSink != nil {
		err := fileSink.Close()
		fileSink = nil
		return err
	}
	return nil
}

// GetLogDir returns the log directory path.
func GetLogDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", ConfigDirName, "logs")
}

// Shorthand functions for the default logger.

// LogDebug logs a debug message to the default logger.
func LogDebug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// LogInfo logs an info message to the default logger.
func LogInfo(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// LogWarn logs a warning message to the default logger.
func LogWarn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// LogError logs an error message to the default logger.
func LogError(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// ANSI color codes for terminal log levels.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// colorHandler wraps slog.TextHandler and colorizes the level name when
// writing to a terminal.
type colorHandler struct {
	*slog.TextHandler
	out io.Writer
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	return &colorHandler{
		TextHandler: slog.NewTextHandler(w, opts),
		out:         w,
	}
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	var color string
	switch {
	case r.Level >= slog.LevelError:
		color = colorRed
	case r.Level >= slog.LevelWarn:
		color = colorYellow
	case r.Level >= slog.LevelInfo:
		color = colorGreen
	default:
		color = colorCyan
	}
	r.Message = color + r.Level.String() + colorReset + " " + r.Message
	return h.TextHandler.Handle(ctx, r)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{TextHandler: h.TextHandler.WithAttrs(attrs).(*slog.TextHandler), out: h.out}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{TextHandler: h.TextHandler.WithGroup(name).(*slog.TextHandler), out: h.out}
}

// multiHandler fans log records out to every wrapped handler.
type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
