package watcher

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// collectRecursiveDirs lists every directory below root, excluding root.
// Entries that vanish or cannot be read during the walk are skipped.
func collectRecursiveDirs(root string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// addTree watches root and every directory below it. A directory removed
// before its watch is added is not an error.
func (h *fsnotifyHandle) addTree(root string) error {
	if err := h.add(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !h.recursive {
		return nil
	}
	paths, err := collectRecursiveDirs(root)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := h.add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
