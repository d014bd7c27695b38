package watcher

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dirwatch/internal/logging"
)

var errEventsClosed = errors.New("fsnotify event channel closed")

// fsnotifyBackend emulates recursive watches by adding one watch per
// directory and following directory creation.
type fsnotifyBackend struct {
	logger *logging.Logger
}

func (b *fsnotifyBackend) Name() string {
	return BackendFsnotify
}

func (b *fsnotifyBackend) Register(path string, recursive bool, mask ChangeMask) (Handle, error) {
	if err := checkRoot(path); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	handle := &fsnotifyHandle{
		root:      path,
		recursive: recursive,
		mask:      mask,
		watcher:   watcher,
		watched:   make(map[string]struct{}),
		logger:    b.logger,
	}
	if err := handle.add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := handle.addTree(path); err != nil {
		watcher.Close()
		return nil, err
	}
	return handle, nil
}

type fsnotifyHandle struct {
	root      string
	recursive bool
	mask      ChangeMask
	watcher   *fsnotify.Watcher
	watched   map[string]struct{}
	logger    *logging.Logger
	// pending forces the next Wait to signal. It is set when a directory
	// already had entries by the time its watch was added, since changes
	// made before that point produce no event.
	pending bool
	// addErr is a failed watch on a created directory, reported by Rearm.
	addErr error

	closeOnce sync.Once
	closed    bool
	closeErr  error
}

func (h *fsnotifyHandle) Wait(ctx context.Context, timeout time.Duration) (WaitStatus, error) {
	if h.closed {
		return WaitFailed, ErrHandleClosed
	}
	if h.pending {
		h.pending = false
		if err := h.drain(); err != nil {
			return WaitFailed, err
		}
		return WaitSignaled, nil
	}
	timer, stop := waitTimer(timeout)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return WaitFailed, ctx.Err()
		case <-timer:
			return WaitTimeout, nil
		case event, ok := <-h.watcher.Events:
			if !ok {
				return WaitFailed, errEventsClosed
			}
			if !h.accept(event) {
				continue
			}
			if err := h.drain(); err != nil {
				return WaitFailed, err
			}
			return WaitSignaled, nil
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return WaitFailed, errEventsClosed
			}
			return WaitFailed, err
		}
	}
}

// drain folds events already queued into the current batch.
func (h *fsnotifyHandle) drain() error {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return nil
			}
			h.accept(event)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		default:
			return nil
		}
	}
}

// accept reports whether event falls inside the mask. Created directories
// are watched immediately so that writes inside them are not lost while the
// caller reports the current batch.
func (h *fsnotifyHandle) accept(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) && h.recursive {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			h.watchCreated(event.Name)
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		delete(h.watched, event.Name)
	}
	return h.mask&fsnotifyCategories(event.Op) != 0
}

func (h *fsnotifyHandle) watchCreated(dir string) {
	if err := h.addTree(dir); err != nil {
		if h.addErr == nil {
			h.addErr = err
		}
		return
	}
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 {
		h.pending = true
	}
}

func fsnotifyCategories(op fsnotify.Op) ChangeMask {
	var mask ChangeMask
	if op.Has(fsnotify.Create) {
		mask |= ChangeFileName | ChangeDirName | ChangeCreation
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		mask |= ChangeFileName | ChangeDirName
	}
	if op.Has(fsnotify.Write) {
		mask |= ChangeSize | ChangeLastWrite
	}
	if op.Has(fsnotify.Chmod) {
		mask |= ChangeLastWrite
	}
	return mask
}

func (h *fsnotifyHandle) Rearm() error {
	if h.closed {
		return ErrHandleClosed
	}
	if err := h.addErr; err != nil {
		h.addErr = nil
		return err
	}
	return checkRoot(h.root)
}

func (h *fsnotifyHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closed = true
		h.closeErr = h.watcher.Close()
	})
	return h.closeErr
}

func (h *fsnotifyHandle) add(path string) error {
	if _, ok := h.watched[path]; ok {
		return nil
	}
	if err := h.watcher.Add(path); err != nil {
		h.logger.Warn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	h.watched[path] = struct{}{}
	h.logger.Debug("watch added", map[string]string{
		"path":   path,
		"active": strconv.Itoa(len(h.watched)),
	})
	return nil
}
