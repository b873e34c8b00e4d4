package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	handler := &logHandler{w: &buf, opID: "op-123"}
	logger := slog.New(handler)

	logger.Info("meal logged", "id", "r-1", "calories", 350)

	line := strings.TrimRight(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	if len(parts) != 6 {
		t.Fatalf("log line has %d fields, want 6: %q", len(parts), line)
	}
	if parts[1] != "INFO" {
		t.Errorf("level = %s, want INFO", parts[1])
	}
	if parts[2] != "op-123" {
		t.Errorf("opID = %s, want op-123", parts[2])
	}
	if parts[3] != "meal logged" {
		t.Errorf("message = %s, want meal logged", parts[3])
	}
	if parts[4] != "id=r-1" {
		t.Errorf("attr = %s, want id=r-1", parts[4])
	}
	if parts[5] != "calories=350" {
		t.Errorf("attr = %s, want calories=350", parts[5])
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := &logHandler{w: &buf, opID: "op-123"}
	logger := slog.New(handler).With("op", "LogMeal")

	logger.Warn("slow query")

	line := buf.String()
	if !strings.Contains(line, "op=LogMeal") {
		t.Errorf("log line missing pre-set attr: %q", line)
	}
	if !strings.Contains(line, "WARN") {
		t.Errorf("log line missing level: %q", line)
	}
}

func TestNewLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(logDir, "op-123")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("started")

	data, err := os.ReadFile(filepath.Join(logDir, "caltrack.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "started") {
		t.Errorf("log file missing entry: %q", data)
	}
	if !strings.Contains(string(data), "op-123") {
		t.Errorf("log file missing op id: %q", data)
	}
}
