package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

// EventTypeDirectoryChanged identifies notifications on the event stream.
const EventTypeDirectoryChanged = "directory_changed"

// Delimiter is the byte written after every notification message.
type Delimiter int

const (
	DelimiterNewline Delimiter = iota
	DelimiterNUL
)

func (d Delimiter) Byte() byte {
	if d == DelimiterNUL {
		return 0
	}
	return '\n'
}

func (d Delimiter) String() string {
	if d == DelimiterNUL {
		return "nul"
	}
	return "newline"
}

// ChangeMask selects the categories of change a backend reports.
type ChangeMask uint8

const (
	ChangeFileName ChangeMask = 1 << iota
	ChangeDirName
	ChangeSize
	ChangeLastWrite
	ChangeCreation
)

const DefaultChangeMask = ChangeFileName | ChangeDirName | ChangeSize | ChangeLastWrite | ChangeCreation

var changeMaskNames = []struct {
	bit  ChangeMask
	name string
}{
	{ChangeFileName, "file_name"},
	{ChangeDirName, "dir_name"},
	{ChangeSize, "size"},
	{ChangeLastWrite, "last_write"},
	{ChangeCreation, "creation"},
}

func (m ChangeMask) Has(change ChangeMask) bool {
	return m&change != 0
}

func (m ChangeMask) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, len(changeMaskNames))
	for _, entry := range changeMaskNames {
		if m.Has(entry.bit) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}

// Config is the fully parsed watch request.
type Config struct {
	// Path is echoed verbatim in every message.
	Path                string
	ExitAfterFirstEvent bool
	Delimiter           Delimiter
	// Timeout bounds a single wait. Zero waits forever.
	Timeout time.Duration
}

type Options struct {
	// Backend defaults to the notify backend when nil.
	Backend Backend
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// Publish receives every notification after it has been written.
	Publish func(Notification)
}

// Notification describes one signalled batch of changes.
type Notification struct {
	Path         string
	ResolvedPath string
	Sequence     uint64
	Backend      string
	OccurredAt   time.Time
}

func (n Notification) Type() string {
	return EventTypeDirectoryChanged
}

func (n Notification) Timestamp() time.Time {
	return n.OccurredAt
}

func (n Notification) Message() string {
	return fmt.Sprintf("Content of (%s) directory has changed.", n.Path)
}

// WaitStatus is the outcome of a single Handle.Wait.
type WaitStatus int

const (
	WaitFailed WaitStatus = iota
	WaitSignaled
	WaitTimeout
)

func (s WaitStatus) String() string {
	switch s {
	case WaitSignaled:
		return "signaled"
	case WaitTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Backend registers change notifications with one notification mechanism.
type Backend interface {
	Name() string
	Register(path string, recursive bool, mask ChangeMask) (Handle, error)
}

// Handle is a live registration. Wait blocks until a batch of changes is
// pending, the timeout elapses or ctx is done. Rearm must be called after a
// signalled Wait before the next one. Close releases the registration and is
// safe to call more than once.
type Handle interface {
	Wait(ctx context.Context, timeout time.Duration) (WaitStatus, error)
	Rearm() error
	Close() error
}
