// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveFetcher downloads the zip archive of the upstream ref.
type ArchiveFetcher struct {
	URL    string
	Client *http.Client
}

// NewArchiveFetcher returns a fetcher for url using http.DefaultClient.
func NewArchiveFetcher(url string) *ArchiveFetcher {
	return &ArchiveFetcher{URL: url, Client: http.DefaultClient}
}

// Download writes the archive to dest. The file appears only once the whole
// body has been received.
func (f *ArchiveFetcher) Download(ctx context.Context, dest string) (err error) {
	defer func() {
		if err != nil {
			err = &FetchError{Source: f.URL, Op: "download", Err: err}
		}
	}()

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath) // Best-effort cleanup
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	slog.Debug("downloading upstream archive", "url", f.URL, "dest", dest)
	resp, err := client.Do(req) //nolint:gosec // URL comes from validated configuration
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if _, err = io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("failed to save archive: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	return os.Rename(tmpPath, dest)
}

// Unzip extracts the archive at zipPath into destDir with the archive's
// single top-level directory stripped, so that redis-unstable/src/Makefile
// lands at destDir/src/Makefile. Entries escaping destDir are rejected.
func Unzip(zipPath, destDir string) (err error) {
	defer func() {
		if err != nil {
			err = &FetchError{Source: zipPath, Op: "unpack", Err: err}
		}
	}()

	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination directory: %w", err)
	}

	zipReader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open ZIP file: %w", err)
	}
	defer func() {
		if closeErr := zipReader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	root, err := archiveRoot(zipReader.File)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(absDestDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	for _, file := range zipReader.File {
		name := strings.TrimPrefix(file.Name, root)
		if name == "" {
			continue
		}

		destPath := filepath.Join(absDestDir, filepath.FromSlash(name))

		// Validate path doesn't escape destination
		relPath, relErr := filepath.Rel(absDestDir, destPath)
		if relErr != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return fmt.Errorf("invalid path in ZIP: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if mkdirErr := os.MkdirAll(destPath, 0o755); mkdirErr != nil {
				return fmt.Errorf("failed to create directory: %w", mkdirErr)
			}
			continue
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(destPath), 0o755); mkdirErr != nil {
			return fmt.Errorf("failed to create parent directory: %w", mkdirErr)
		}

		if extractErr := extractFile(file, destPath); extractErr != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, extractErr)
		}
	}

	return nil
}

// archiveRoot returns the "name/" prefix shared by every entry. GitHub
// archives always have exactly one.
func archiveRoot(files []*zip.File) (string, error) {
	var root string
	for _, file := range files {
		first, _, _ := strings.Cut(file.Name, "/")
		switch {
		case first == "" || first == "..":
			return "", fmt.Errorf("invalid path in ZIP: %s", file.Name)
		case root == "":
			root = first
		case first != root:
			return "", fmt.Errorf("archive has more than one top-level entry (%s, %s)", root, first)
		}
	}
	if root == "" {
		return "", errors.New("archive is empty")
	}
	return root + "/", nil
}

func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := destFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archive comes from the configured upstream
	_, err = io.Copy(destFile, rc)
	return err
}
