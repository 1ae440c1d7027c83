// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamLayout is the sentinel error wrapped by UpstreamLayoutError.
	ErrUpstreamLayout = errors.New("unexpected upstream layout")
	// ErrFetch is the sentinel error wrapped by FetchError.
	ErrFetch = errors.New("failed to fetch upstream")
)

type (
	// UpstreamLayoutError is returned when a file or variable the build
	// depends on is missing from the upstream tree. It signals an upstream
	// version this tool does not understand.
	//
	//nolint:revive // UpstreamLayoutError reads better at call sites than LayoutError
	UpstreamLayoutError struct {
		// Path is the file that was inspected.
		Path string
		// Reason describes what was expected.
		Reason string
	}

	// FetchError is returned when cloning or downloading the upstream fails.
	FetchError struct {
		// Source is the git or archive URL.
		Source string
		// Op is "clone", "download" or "unpack".
		Op string
		// Err is the underlying failure.
		Err error
	}
)

// Error implements the error interface.
func (e *UpstreamLayoutError) Error() string {
	return fmt.Sprintf("unexpected upstream layout in %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrUpstreamLayout for errors.Is() compatibility.
func (e *UpstreamLayoutError) Unwrap() error { return ErrUpstreamLayout }

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

// Unwrap returns both ErrFetch and the underlying error, so callers can
// detect the category and still inspect the cause (context.Canceled, etc).
func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }
