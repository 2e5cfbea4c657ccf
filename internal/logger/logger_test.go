package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, FormatText, &buf)

	l.Info("Engine", "should not appear")
	if buf.Len() != 0 {
		t.Fatalf("Expected no output below min level, got %q", buf.String())
	}

	l.Warn("Engine", "rows skipped: count=%d", 3)
	out := buf.String()
	if !strings.Contains(out, "rows skipped: count=3") {
		t.Errorf("Expected formatted message in output, got %q", out)
	}
	if !strings.Contains(out, "component=Engine") {
		t.Errorf("Expected component field in output, got %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, FormatJSON, &buf)

	l.Error("Store", "write failed: id=%d", 7)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "Store" {
		t.Errorf("Expected component Store, got %v", entry["component"])
	}
	if entry["level"] != "error" {
		t.Errorf("Expected level error, got %v", entry["level"])
	}
	if entry["msg"] != "write failed: id=7" {
		t.Errorf("Expected message, got %v", entry["msg"])
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelError, FormatText, &buf)
	l.SetLogLevel(LevelDebug)

	l.Debug("", "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("Expected debug output after SetLogLevel, got %q", buf.String())
	}
}
