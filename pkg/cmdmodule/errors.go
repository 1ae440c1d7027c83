// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is the sentinel error wrapped by ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrManifestParse is the sentinel error wrapped by ManifestParseError.
	ErrManifestParse = errors.New("invalid module manifest")
)

type (
	// ModuleNotFoundError is returned when a module directory, or its
	// manifest file, does not exist.
	ModuleNotFoundError struct {
		// Path is the directory or manifest that is missing.
		Path string
		// Reason describes what is wrong with Path.
		Reason string
	}

	// ManifestParseError is returned when the manifest cannot be decoded or
	// its command list is not a well-formed list of strings. A single
	// malformed command entry is not a ManifestParseError; it is rejected by
	// ParseDeclaration and skipped.
	ManifestParseError struct {
		// Path is the manifest file.
		Path string
		// Err is the decoding failure.
		Err error
	}
)

// Error implements the error interface.
func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module not found: %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrModuleNotFound so callers can use errors.Is for programmatic detection.
func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

// Error implements the error interface.
func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("invalid module manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrManifestParse so callers can use errors.Is for programmatic detection.
// The decoding failure stays reachable through the Err field.
func (e *ManifestParseError) Unwrap() error { return ErrManifestParse }
