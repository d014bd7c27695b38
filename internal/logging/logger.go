package logging

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultBufferSize = 256

// Logger writes one line per entry to its output and keeps recent entries
// in a LogBuffer for the /logs endpoint. Every method is safe on a nil
// Logger.
type Logger struct {
	sink   *sink
	fields map[string]string
}

// sink is shared by a logger and everything derived from it with With.
type sink struct {
	mu       sync.Mutex
	out      io.Writer
	buffer   *LogBuffer
	minLevel Level
	now      func() time.Time
}

// NewLogger writes to stderr so that stdout stays reserved for notifications.
func NewLogger(buffer *LogBuffer, minLevel Level) *Logger {
	return NewLoggerWithOutput(buffer, minLevel, os.Stderr)
}

func NewLoggerWithOutput(buffer *LogBuffer, minLevel Level, output io.Writer) *Logger {
	if buffer == nil {
		buffer = NewLogBuffer(DefaultBufferSize)
	}
	if output == nil {
		output = io.Discard
	}
	if _, known := levelRanks[minLevel]; !known {
		minLevel = LevelInfo
	}
	return &Logger{sink: &sink{
		out:      output,
		buffer:   buffer,
		minLevel: minLevel,
		now:      time.Now,
	}}
}

// Discard returns a logger that records errors only and prints nothing.
func Discard() *Logger {
	return NewLoggerWithOutput(nil, LevelError, io.Discard)
}

func (l *Logger) Buffer() *LogBuffer {
	if l == nil {
		return nil
	}
	return l.sink.buffer
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.write(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.write(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.write(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.write(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	return l != nil && LevelAtLeast(level, l.sink.minLevel)
}

func (l *Logger) write(level Level, message string, fields map[string]string) {
	if !l.Enabled(level) {
		return
	}
	entry := LogEntry{
		Timestamp: l.sink.now().UTC(),
		Level:     level,
		Message:   message,
		Context:   mergeFields(l.fields, fields),
	}
	l.sink.buffer.Add(entry)

	line := formatEntry(entry)
	l.sink.mu.Lock()
	io.WriteString(l.sink.out, line)
	l.sink.mu.Unlock()
}

var levelRanks = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// LevelAtLeast reports whether level is as severe as min. Unknown levels
// rank as info.
func LevelAtLeast(level, min Level) bool {
	rank, ok := levelRanks[level]
	if !ok {
		rank = levelRanks[LevelInfo]
	}
	minRank, ok := levelRanks[min]
	if !ok {
		minRank = levelRanks[LevelInfo]
	}
	return rank >= minRank
}

func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	default:
		return "", false
	}
}

func mergeFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	return merged
}

// formatEntry renders `time=... level=... msg="..." key="value"` with keys
// sorted and a trailing newline.
func formatEntry(entry LogEntry) string {
	var b strings.Builder
	b.WriteString("time=")
	b.WriteString(entry.Timestamp.Format(time.RFC3339))
	b.WriteString(" level=")
	b.WriteString(string(entry.Level))
	b.WriteString(" msg=")
	b.WriteString(strconv.Quote(entry.Message))

	keys := make([]string, 0, len(entry.Context))
	for key := range entry.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(entry.Context[key]))
	}
	b.WriteByte('\n')
	return b.String()
}
