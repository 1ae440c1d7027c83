// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

// States of a build directory, in the order a run enters them.
const (
	StateUninitialized State = "uninitialized"
	StateFetching      State = "fetching"
	StatePruning       State = "pruning"
	StateCopying       State = "copying"
	StatePatching      State = "patching"
	StateBuilding      State = "building"
	StateComplete      State = "complete"
	// StateFailed is entered from any working state on error.
	StateFailed State = "failed"
)

// ErrInvalidState is the sentinel error wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid build state")

type (
	// State is a build directory lifecycle state.
	State string

	// InvalidStateError is returned when a State value has no entry
	// action.
	InvalidStateError struct {
		Value State
	}
)

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid build state %q", e.Value)
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// String returns the string representation of the State.
func (s State) String() string { return string(s) }

// IsTerminal reports whether no further transition follows s.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Next returns the state that follows s on success. An unknown state is
// followed by StateFailed.
func (s State) Next() State {
	switch s {
	case StateUninitialized:
		return StateFetching
	case StateFetching:
		return StatePruning
	case StatePruning:
		return StateCopying
	case StateCopying:
		return StatePatching
	case StatePatching:
		return StateBuilding
	case StateBuilding:
		return StateComplete
	case StateComplete:
		return StateComplete
	default:
		return StateFailed
	}
}
