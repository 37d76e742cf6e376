package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "unknown"},
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-2 * 24 * time.Hour), "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.t); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}

	old := formatTime(now.Add(-30 * 24 * time.Hour))
	if !strings.Contains(old, "-") {
		t.Errorf("formatTime(30d ago) = %q, want a date", old)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}

	long := strings.Repeat("a", 50)
	got := truncate(long, 40)
	if runes := []rune(got); len(runes) != 40 {
		t.Errorf("truncate length = %d, want 40", len(runes))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncate(%q) missing ellipsis: %q", long, got)
	}

	// Multibyte titles must not be cut mid-rune.
	if got := truncate("你好世界你好世界", 5); []rune(got)[4] != '…' {
		t.Errorf("multibyte truncate = %q", got)
	}
}

func TestDescribeAPIKey(t *testing.T) {
	if got := describeAPIKey(""); !strings.Contains(got, "not set") {
		t.Errorf("empty key = %q", got)
	}
	if got := describeAPIKey("short"); got != "set" {
		t.Errorf("short key = %q", got)
	}

	got := describeAPIKey("AIzaSyExampleExampleExample")
	if !strings.HasPrefix(got, "set (AIzaSy") {
		t.Errorf("long key = %q", got)
	}
	if strings.Contains(got, "Example") {
		t.Errorf("long key leaks content: %q", got)
	}
}
