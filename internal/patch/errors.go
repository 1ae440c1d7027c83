// SPDX-License-Identifier: MPL-2.0

package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorNotFound is the sentinel error wrapped by AnchorNotFoundError.
	ErrAnchorNotFound = errors.New("patch anchor not found")
	// ErrAlreadyPatched is the sentinel error wrapped by AlreadyPatchedError.
	ErrAlreadyPatched = errors.New("file already patched")
)

type (
	// AnchorNotFoundError is returned when a target file lacks its anchor,
	// which means the upstream version is not supported.
	AnchorNotFoundError struct {
		Path   string
		Anchor string
	}

	// AlreadyPatchedError is returned when a target file already holds an
	// insertion. Patching twice would duplicate it.
	AlreadyPatchedError struct {
		Path string
		// Marker is the text whose presence was detected.
		Marker string
	}
)

// Error implements the error interface.
func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor %q not found in %s", e.Anchor, e.Path)
}

// Unwrap returns ErrAnchorNotFound for errors.Is() compatibility.
func (e *AnchorNotFoundError) Unwrap() error { return ErrAnchorNotFound }

// Error implements the error interface.
func (e *AlreadyPatchedError) Error() string {
	return fmt.Sprintf("%s is already patched (found %q)", e.Path, e.Marker)
}

// Unwrap returns ErrAlreadyPatched for errors.Is() compatibility.
func (e *AlreadyPatchedError) Unwrap() error { return ErrAlreadyPatched }
