// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// dirLock is an exclusively created marker file. Unlike flock it survives a
// crash, and a stale marker has to be removed by hand.
type dirLock struct {
	path string
}

// acquireLock creates the marker at path, failing with errLockHeld when it
// already exists.
func acquireLock(path string) (*dirLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errLockHeld
		}
		return nil, fmt.Errorf("create lock file %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close lock file %s: %w", path, err)
	}
	return &dirLock{path: path}, nil
}

// Release removes the marker. Subsequent calls are no-ops.
func (l *dirLock) Release() {
	if l == nil || l.path == "" {
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Debug("lock file removal failed", "error", err)
	}
	l.path = ""
}
