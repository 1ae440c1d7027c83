// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
)

// Entries of a build directory.
const (
	LockFileName     = ".cmdsplice.lock"
	CheckpointName   = "buildstate.cue"
	ArchiveName      = "upstream.zip"
	ReferenceDirName = "reference"
	TreeDirName      = "tree"
)

// asideSuffixFormat names a directory moved aside by --force.
const asideSuffixFormat = ".cmdsplice-old-%d-%d"

// errLockHeld is returned by acquireLock when another writer holds the lock.
var errLockHeld = errors.New("lock held")

type (
	// BuildDirectory is the working area of one build: the fetched upstream,
	// the pristine reference copy and the checkpoint.
	BuildDirectory struct {
		Root string
	}

	// Lease is exclusive ownership of a build directory for one run.
	Lease struct {
		Dir        BuildDirectory
		Checkpoint *Checkpoint

		lock *dirLock
	}
)

// NewBuildDirectory returns the build directory rooted at root.
func NewBuildDirectory(root string) BuildDirectory {
	return BuildDirectory{Root: root}
}

// LockPath returns the path of the single-writer lock file.
func (d BuildDirectory) LockPath() string { return filepath.Join(d.Root, LockFileName) }

// CheckpointPath returns the path of buildstate.cue.
func (d BuildDirectory) CheckpointPath() string { return filepath.Join(d.Root, CheckpointName) }

// ArchivePath returns the path of the downloaded upstream archive.
func (d BuildDirectory) ArchivePath() string { return filepath.Join(d.Root, ArchiveName) }

// Reference returns the pristine unpacked upstream.
func (d BuildDirectory) Reference() upstream.Tree {
	return upstream.NewTree(filepath.Join(d.Root, ReferenceDirName))
}

// Tree returns the working tree that is pruned, patched and built.
func (d BuildDirectory) Tree() upstream.Tree {
	return upstream.NewTree(filepath.Join(d.Root, TreeDirName))
}

// Exists reports whether anything is present at the root path.
func (d BuildDirectory) Exists() bool {
	_, err := os.Lstat(d.Root)
	return err == nil
}

// Acquire takes ownership of the directory for a run of the plan with the
// given fingerprint.
//
// An absent directory is created. With force, an existing directory is moved
// aside and removed first. Without force, an existing directory is reused
// only when its checkpoint belongs to the same plan and did not complete;
// otherwise BuildDirectoryExistsError is returned and nothing is written.
func (d BuildDirectory) Acquire(fingerprint string, force bool) (*Lease, error) {
	info, err := os.Stat(d.Root)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return d.create(fingerprint)
	case err != nil:
		return nil, fmt.Errorf("failed to inspect build directory: %w", err)
	case force:
		if err := d.reset(); err != nil {
			return nil, err
		}
		return d.create(fingerprint)
	case !info.IsDir():
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: "not a directory"}
	}

	checkpoint, err := d.resumable(fingerprint)
	if err != nil {
		return nil, err
	}

	lock, err := d.lock()
	if err != nil {
		return nil, err
	}
	slog.Info("resuming build", "dir", d.Root, "state", checkpoint.State)
	return &Lease{Dir: d, Checkpoint: checkpoint, lock: lock}, nil
}

// resumable loads the checkpoint and checks that it can be continued.
func (d BuildDirectory) resumable(fingerprint string) (*Checkpoint, error) {
	if _, err := os.Stat(d.CheckpointPath()); err != nil {
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: "no build state to resume"}
	}
	checkpoint, err := LoadCheckpoint(d.CheckpointPath())
	if err != nil {
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: fmt.Sprintf("unreadable build state: %v", err)}
	}
	switch {
	case checkpoint.Version != CheckpointVersion:
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: "build state written by another version"}
	case checkpoint.Fingerprint != fingerprint:
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: "built from a different upstream or set of modules"}
	case checkpoint.State == StateComplete:
		return nil, &BuildDirectoryExistsError{Path: d.Root, Reason: "build already completed"}
	}
	return checkpoint, nil
}

// create makes the directory and takes the lock on a fresh checkpoint.
func (d BuildDirectory) create(fingerprint string) (*Lease, error) {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	lock, err := d.lock()
	if err != nil {
		return nil, err
	}
	return &Lease{Dir: d, Checkpoint: NewCheckpoint(fingerprint), lock: lock}, nil
}

// reset removes an existing directory. The lock is held while the directory
// is renamed aside so that a concurrent run is never pulled from under its
// feet; the removal of the renamed copy cannot disturb anyone.
func (d BuildDirectory) reset() error {
	var lock *dirLock
	if info, err := os.Stat(d.Root); err == nil && info.IsDir() {
		if lock, err = d.lock(); err != nil {
			return err
		}
	}

	aside := d.Root + fmt.Sprintf(asideSuffixFormat, os.Getpid(), time.Now().UnixNano())
	err := os.Rename(d.Root, aside)
	lock.Release()
	if err != nil {
		return fmt.Errorf("failed to move build directory aside: %w", err)
	}

	slog.Info("removing existing build directory", "dir", d.Root)
	if err := os.RemoveAll(aside); err != nil {
		return fmt.Errorf("failed to remove old build directory %s: %w", aside, err)
	}
	return nil
}

func (d BuildDirectory) lock() (*dirLock, error) {
	lock, err := acquireLock(d.LockPath())
	if errors.Is(err, errLockHeld) {
		return nil, &BuildDirectoryLockedError{Path: d.Root}
	}
	return lock, err
}

// Save persists the lease's checkpoint.
func (l *Lease) Save() error {
	return l.Checkpoint.Save(l.Dir.CheckpointPath())
}

// Release gives up ownership of the directory.
func (l *Lease) Release() {
	l.lock.Release()
}
