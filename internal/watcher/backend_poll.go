package watcher

import (
	"context"
	"encoding/binary"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"dirwatch/internal/logging"
)

const pollInterval = time.Second

// pollBackend compares a hash of the tree listing once per interval. It
// works on filesystems without change notification support, such as some
// network mounts.
type pollBackend struct {
	interval time.Duration
	logger   *logging.Logger
}

func (b *pollBackend) Name() string {
	return BackendPoll
}

func (b *pollBackend) Register(path string, recursive bool, mask ChangeMask) (Handle, error) {
	if err := checkRoot(path); err != nil {
		return nil, err
	}
	interval := b.interval
	if interval <= 0 {
		interval = pollInterval
	}
	handle := &pollHandle{
		root:      path,
		recursive: recursive,
		mask:      mask,
		interval:  interval,
		logger:    b.logger,
	}
	fingerprint, err := handle.fingerprint()
	if err != nil {
		return nil, err
	}
	handle.last = fingerprint
	return handle, nil
}

type pollHandle struct {
	root      string
	recursive bool
	mask      ChangeMask
	interval  time.Duration
	last      uint64
	logger    *logging.Logger
	closed    bool
}

func (h *pollHandle) Wait(ctx context.Context, timeout time.Duration) (WaitStatus, error) {
	if h.closed {
		return WaitFailed, ErrHandleClosed
	}
	timer, stop := waitTimer(timeout)
	defer stop()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return WaitFailed, ctx.Err()
		case <-timer:
			return WaitTimeout, nil
		case <-ticker.C:
			fingerprint, err := h.fingerprint()
			if err != nil {
				return WaitFailed, err
			}
			if fingerprint == h.last {
				continue
			}
			h.logger.Debug("tree fingerprint changed", map[string]string{
				"fingerprint": strconv.FormatUint(fingerprint, 16),
			})
			h.last = fingerprint
			return WaitSignaled, nil
		}
	}
}

func (h *pollHandle) Rearm() error {
	if h.closed {
		return ErrHandleClosed
	}
	return checkRoot(h.root)
}

func (h *pollHandle) Close() error {
	h.closed = true
	return nil
}

// fingerprint hashes the relative path of every entry plus the attributes
// selected by the mask. WalkDir visits entries in lexical order, so equal
// trees hash equally.
func (h *pollHandle) fingerprint() (uint64, error) {
	digest := xxhash.New()
	var scratch [8]byte
	writeInt := func(value int64) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(value))
		digest.Write(scratch[:])
	}

	err := filepath.WalkDir(h.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == h.root {
				return err
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == h.root {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(h.root, path)
		if err != nil {
			return err
		}
		digest.WriteString(filepath.ToSlash(rel))
		digest.Write([]byte{0})
		writeInt(int64(info.Mode().Type()))
		if h.mask.Has(ChangeSize) && !entry.IsDir() {
			writeInt(info.Size())
		}
		if h.mask.Has(ChangeLastWrite) {
			writeInt(info.ModTime().UnixNano())
			writeInt(int64(info.Mode().Perm()))
		}
		if entry.IsDir() && !h.recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}
