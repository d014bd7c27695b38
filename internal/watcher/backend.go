package watcher

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"dirwatch/internal/logging"
)

const (
	BackendNotify   = "notify"
	BackendFsnotify = "fsnotify"
	BackendPoll     = "poll"

	DefaultBackendName = BackendNotify
)

// BackendNames lists the selectable backends, default first.
func BackendNames() []string {
	return []string{BackendNotify, BackendFsnotify, BackendPoll}
}

func NewBackend(name string, logger *logging.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendNotify:
		return &notifyBackend{logger: logger}, nil
	case BackendFsnotify:
		return &fsnotifyBackend{logger: logger}, nil
	case BackendPoll:
		return &pollBackend{interval: pollInterval, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// checkRoot reports why path cannot be watched, if it cannot.
func checkRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "watch", Path: path, Err: syscall.ENOTDIR}
	}
	return nil
}

// waitTimer returns a nil channel when timeout is not positive so that a
// select on it never fires.
func waitTimer(timeout time.Duration) (<-chan time.Time, func()) {
	if timeout <= 0 {
		return nil, func() {}
	}
	timer := time.NewTimer(timeout)
	return timer.C, func() { timer.Stop() }
}
