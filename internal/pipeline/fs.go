// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sameContent reports whether dest exists with the bytes of src.
func sameContent(src, dest string) (bool, error) {
	want, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", src, err)
	}
	got, err := os.ReadFile(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dest, err)
	}
	return bytes.Equal(want, got), nil
}

// copyFile replaces dest with the content and permissions of src. The new
// file is renamed into place so dest is never partially written.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".cmdsplice-copy-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	_ = os.Chmod(tmpPath, info.Mode().Perm()) // best-effort permission sync

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	return nil
}
