package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("text format by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{})

		logger.Info("hello", "key", "value")

		out := buf.String()
		if !strings.Contains(out, "msg=hello") {
			t.Errorf("expected text output with msg=hello, got %q", out)
		}
		if !strings.Contains(out, "key=value") {
			t.Errorf("expected attribute key=value, got %q", out)
		}
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{JSON: true})

		logger.Info("hello", "key", "value")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if entry["msg"] != "hello" {
			t.Errorf("expected msg=hello, got %v", entry["msg"])
		}
	})

	t.Run("respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

		logger.Info("dropped")
		logger.Warn("kept")

		out := buf.String()
		if strings.Contains(out, "dropped") {
			t.Errorf("info message should be dropped at warn level: %q", out)
		}
		if !strings.Contains(out, "kept") {
			t.Errorf("warn message should be kept: %q", out)
		}
	})
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	// Must not panic.
	logger.Info("discarded", "key", "value")
}
