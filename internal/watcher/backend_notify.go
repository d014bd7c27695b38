package watcher

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/syncthing/notify"

	"dirwatch/internal/logging"
)

// notifyBufferSize bounds the events queued between waits. Past that the
// library drops events, which is harmless because a full queue already
// means the batch is signalled.
const notifyBufferSize = 500

// notifyBackend uses the platform's native recursive watch where one exists
// (ReadDirectoryChangesW, FSEvents) and emulates it elsewhere.
type notifyBackend struct {
	logger *logging.Logger
}

func (b *notifyBackend) Name() string {
	return BackendNotify
}

func (b *notifyBackend) Register(path string, recursive bool, mask ChangeMask) (Handle, error) {
	if err := checkRoot(path); err != nil {
		return nil, err
	}
	events := notifyEvents(mask)
	if len(events) == 0 {
		events = []notify.Event{notify.All}
	}
	target := path
	if recursive {
		target = filepath.Join(path, "...")
	}
	backendChan := make(chan notify.EventInfo, notifyBufferSize)
	if err := notify.Watch(target, backendChan, events...); err != nil {
		notify.Stop(backendChan)
		return nil, err
	}
	b.logger.Debug("watch added", map[string]string{"path": target})
	return &notifyHandle{
		root:   path,
		events: backendChan,
		logger: b.logger,
	}, nil
}

type notifyHandle struct {
	root   string
	events chan notify.EventInfo
	logger *logging.Logger

	closeOnce sync.Once
	closed    bool
}

func (h *notifyHandle) Wait(ctx context.Context, timeout time.Duration) (WaitStatus, error) {
	if h.closed {
		return WaitFailed, ErrHandleClosed
	}
	timer, stop := waitTimer(timeout)
	defer stop()

	select {
	case <-ctx.Done():
		return WaitFailed, ctx.Err()
	case <-timer:
		return WaitTimeout, nil
	case <-h.events:
		if queued := len(h.events); queued == cap(h.events) {
			h.logger.Warn("change queue overflowed, events were dropped", map[string]string{
				"queued": strconv.Itoa(queued),
			})
		}
		h.drain()
		return WaitSignaled, nil
	}
}

func (h *notifyHandle) drain() {
	for {
		select {
		case <-h.events:
		default:
			return
		}
	}
}

func (h *notifyHandle) Rearm() error {
	if h.closed {
		return ErrHandleClosed
	}
	return checkRoot(h.root)
}

func (h *notifyHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closed = true
		notify.Stop(h.events)
	})
	return nil
}
