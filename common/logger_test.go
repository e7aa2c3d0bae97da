package common

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{" Info ", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestColorHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Debug should be filtered at info level
	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered when level is info")
	}

	logger.Info("info message")
	out := buf.String()
	if !strings.Contains(out, "info message") {
		t.Error("info message should be logged")
	}
	if !strings.Contains(out, "[32m") {
		t.Error("info message should use the green color code")
	}

	buf.Reset()
	logger.Error("error message", "key", "value")
	out = buf.String()
	if !strings.Contains(out, "[31m") {
		t.Error("error message should use the red color code")
	}
	if !strings.Contains(out, "key=value") {
		t.Error("attributes should be rendered")
	}
}

func TestMultiHandler(t *testing.T) {
	var console, file bytes.Buffer
	handler := multiHandler{
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(handler)

	logger.Debug("quiet message")
	if console.Len() == 0 {
		t.Error("debug handler should receive the debug record")
	}
	if file.Len() > 0 {
		t.Error("warn handler should filter the debug record")
	}

	console.Reset()
	logger.Warn("loud message")
	if !strings.Contains(console.String(), "loud message") {
		t.Error("warn record should reach the debug handler")
	}
	if !strings.Contains(file.String(), "loud message") {
		t.Error("warn record should reach the warn handler")
	}
}

func TestDefaultLogConfig(t *testing.T) {
	if defaultMaxSizeMB != 5 {
		t.Errorf("defaultMaxSizeMB = %v, want 5", defaultMaxSizeMB)
	}

	if defaultMaxBackups != 5 {
		t.Errorf("defaultMaxBackups = %v, want 5", defaultMaxBackups)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if dir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.HasSuffix(dir, ConfigDirName) {
		t.Errorf("GetConfigDir() = %v, should end with %v", dir, ConfigDirName)
	}
}

func TestFileExists(t *testing.T) {
	// Test with existing file
	tempFile, err := os.CreateTemp("", "test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tempFile.Name())
	tempFile.Close()

	if !FileExists(tempFile.Name()) {
		t.Error("FileExists() should return true for existing file")
	}

	// Test with non-existing file
	if FileExists("/nonexistent/path/to/file") {
		t.Error("FileExists() should return false for non-existing file")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        uint64
		expected string
	}{
		{0, "0.0 B"},
		{512, "512.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatBytes(tt.n); got != tt.expected {
				t.Errorf("FormatBytes(%d) = %v, want %v", tt.n, got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "0:00:00"},
		{45 * time.Second, "0:00:45"},
		{5*time.Minute + 32*time.Second, "0:05:32"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{25 * time.Hour, "25:00:00"},
		{-time.Minute, "0:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.expected {
				t.Errorf("FormatDuration(%v) = %v, want %v", tt.d, got, tt.expected)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	originalErr := ErrManagementUnavailable
	wrapped := WrapError(originalErr, "additional context")

	if wrapped == nil {
		t.Fatal("WrapError should return non-nil error")
	}

	if !strings.Contains(wrapped.Error(), "additional context") {
		t.Error("WrapError should include additional context")
	}

	if !strings.Contains(wrapped.Error(), originalErr.Error()) {
		t.Error("WrapError should include original error message")
	}

	// Test with nil error
	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}
}
