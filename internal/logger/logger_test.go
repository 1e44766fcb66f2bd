package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("info", "json", &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.Debug("hidden")
	log.Info("book fetched", zap.String("book_id", "1513"))
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line at info level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "book fetched" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
	if entry["book_id"] != "1513" {
		t.Errorf("expected book_id field, got %v", entry["book_id"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("debug", "console", &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.Debug("chunk analyzed")
	_ = log.Sync()

	if !strings.Contains(buf.String(), "chunk analyzed") {
		t.Errorf("expected debug message in output, got %q", buf.String())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"bad level", "loud", "json"},
		{"bad format", "info", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.level, tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}
