// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildDirectoryExists is the sentinel error wrapped by BuildDirectoryExistsError.
	ErrBuildDirectoryExists = errors.New("build directory already exists")
	// ErrBuildDirectoryLocked is the sentinel error wrapped by BuildDirectoryLockedError.
	ErrBuildDirectoryLocked = errors.New("build directory is locked")
)

type (
	// BuildDirectoryExistsError is returned when a build directory is present,
	// cannot be resumed and --force was not given.
	BuildDirectoryExistsError struct {
		Path   string
		Reason string
	}

	// BuildDirectoryLockedError is returned when another process holds the
	// build directory lock.
	BuildDirectoryLockedError struct {
		Path string
	}

	// StepError reports the state whose entry action failed.
	StepError struct {
		State State
		Err   error
	}
)

// Error implements the error interface.
func (e *BuildDirectoryExistsError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("build directory %s already exists", e.Path)
	}
	return fmt.Sprintf("build directory %s already exists: %s", e.Path, e.Reason)
}

// Unwrap returns ErrBuildDirectoryExists for errors.Is() compatibility.
func (e *BuildDirectoryExistsError) Unwrap() error { return ErrBuildDirectoryExists }

// Error implements the error interface.
func (e *BuildDirectoryLockedError) Error() string {
	return fmt.Sprintf("build directory %s is in use by another process", e.Path)
}

// Unwrap returns ErrBuildDirectoryLocked for errors.Is() compatibility.
func (e *BuildDirectoryLockedError) Unwrap() error { return ErrBuildDirectoryLocked }

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

// Unwrap returns the underlying failure.
func (e *StepError) Unwrap() error { return e.Err }
