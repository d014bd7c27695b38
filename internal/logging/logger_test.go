package logging

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestLoggerWritesToBuffer(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelInfo, io.Discard)

	logger.Info("watch registered", map[string]string{"path": "/tmp/x"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != LevelInfo {
		t.Fatalf("expected info level, got %q", entry.Level)
	}
	if entry.Message != "watch registered" {
		t.Fatalf("expected message, got %q", entry.Message)
	}
	if entry.Context["path"] != "/tmp/x" {
		t.Fatalf("expected context path=/tmp/x, got %v", entry.Context)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelWarning, io.Discard)

	logger.Info("info", nil)
	logger.Warn("warn", nil)

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != LevelWarning {
		t.Fatalf("expected warning level, got %q", entries[0].Level)
	}
}

func TestLoggerWithMergesBaseFields(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelDebug, io.Discard).With(map[string]string{
		"component": "watcher",
	})

	logger.Debug("armed", map[string]string{"sequence": "3"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Context["component"] != "watcher" || entries[0].Context["sequence"] != "3" {
		t.Fatalf("unexpected context: %v", entries[0].Context)
	}
}

func TestLoggerFormatsSortedFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewLoggerWithOutput(nil, LevelInfo, &out)

	logger.Info("changed", map[string]string{"b": "2", "a": "1"})

	line := out.String()
	if !strings.Contains(line, `level=info msg="changed" a="1" b="2"`) {
		t.Fatalf("unexpected log line %q", line)
	}
}

func TestLogBufferKeepsMostRecent(t *testing.T) {
	buffer := NewLogBuffer(2)
	for _, message := range []string{"one", "two", "three"} {
		buffer.Add(LogEntry{Message: message})
	}

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "two" || entries[1].Message != "three" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warn":    LevelWarning,
		"warning": LevelWarning,
		"error":   LevelError,
	}
	for input, want := range cases {
		got, ok := ParseLevel(input)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatal("expected unknown level to be rejected")
	}
}

func TestLoggerWithDoesNotLeakIntoParent(t *testing.T) {
	buffer := NewLogBuffer(10)
	parent := NewLoggerWithOutput(buffer, LevelInfo, io.Discard)
	child := parent.With(map[string]string{"backend": "poll"})

	child.Info("child", nil)
	parent.Info("parent", nil)

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Context["backend"] != "poll" {
		t.Fatalf("expected child field, got %v", entries[0].Context)
	}
	if entries[1].Context != nil {
		t.Fatalf("expected parent entry without fields, got %v", entries[1].Context)
	}
}

func TestLogBufferRecentFiltersAndLimits(t *testing.T) {
	buffer := NewLogBuffer(10)
	for _, entry := range []LogEntry{
		{Level: LevelDebug, Message: "d"},
		{Level: LevelWarning, Message: "w1"},
		{Level: LevelInfo, Message: "i"},
		{Level: LevelError, Message: "e"},
		{Level: LevelWarning, Message: "w2"},
	} {
		buffer.Add(entry)
	}

	entries := buffer.Recent(LevelWarning, 2)
	if len(entries) != 2 || entries[0].Message != "e" || entries[1].Message != "w2" {
		t.Fatalf("unexpected entries %v", entries)
	}
	if all := buffer.Recent("", 0); len(all) != 5 {
		t.Fatalf("expected all entries, got %d", len(all))
	}
}

func TestLevelAtLeast(t *testing.T) {
	if !LevelAtLeast(LevelError, LevelWarning) {
		t.Fatal("expected error >= warning")
	}
	if LevelAtLeast(LevelDebug, LevelInfo) {
		t.Fatal("expected debug < info")
	}
	if !LevelAtLeast(Level("trace"), LevelInfo) {
		t.Fatal("expected unknown level to rank as info")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil)
	if logger.With(map[string]string{"a": "b"}) != nil {
		t.Fatal("expected nil logger from With")
	}
	if logger.Buffer() != nil || logger.Enabled(LevelError) {
		t.Fatal("expected nil logger to be disabled")
	}
}
