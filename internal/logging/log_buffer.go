package logging

import "sync"

// LogBuffer keeps the most recent entries in memory.
type LogBuffer struct {
	mu      sync.Mutex
	size    int
	entries []LogEntry
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{size: size}
}

func (b *LogBuffer) Add(entry LogEntry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == b.size {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, entry)
}

func (b *LogBuffer) List() []LogEntry {
	return b.Recent("", 0)
}

// Recent returns, oldest first, at most limit entries at or above
// minLevel. An empty minLevel keeps every entry and a non-positive limit
// keeps all matches.
func (b *LogBuffer) Recent(minLevel Level, limit int) []LogEntry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]LogEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		if minLevel == "" || LevelAtLeast(entry.Level, minLevel) {
			entries = append(entries, entry)
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}
