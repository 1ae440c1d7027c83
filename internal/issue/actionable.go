// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a failure prepared for the terminal: what cmdsplice
	// was doing, on which path, and what the user can do about it.
	//
	// Build one with the ErrorContext builder:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("prepare build directory").
	//		WithResource("/work/build").
	//		WithSuggestion("Pass --force to delete and recreate the build directory").
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "load modules" or "patch upstream sources".
		Operation string

		// Resource is the module, file or directory involved (optional).
		Resource string

		// Issue selects the catalog entry shown in verbose mode (optional).
		// Zero leaves the choice to the caller's classification.
		Issue Id

		// Suggestions are printed one per line under the message (optional).
		Suggestions []string

		// Cause is the underlying error (optional).
		Cause error
	}

	// ErrorContext is a builder for ActionableError.
	ErrorContext struct {
		operation   string
		resource    string
		issue       Id
		suggestions []string
		cause       error
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error implements the error interface.
// The message has the form "failed to <operation>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the underlying cause error for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by the suggestions. With verbose the
// cause chain is appended, one error per line.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		for i, err := range Chain(e.Cause) {
			fmt.Fprintf(&msg, "\n  %d. %s", i+1, err.Error())
		}
	}

	return msg.String()
}

// Chain returns err and the errors it wraps, outermost first. Where an error
// wraps several others, the one whose message ends the outer message (its
// cause) is followed, or else the first one (usually its sentinel).
func Chain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		err = next(err)
	}
	return chain
}

func next(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	multi, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var fallback error
	for _, wrapped := range multi.Unwrap() {
		if wrapped == nil {
			continue
		}
		if fallback == nil {
			fallback = wrapped
		}
		if strings.HasSuffix(err.Error(), wrapped.Error()) {
			return wrapped
		}
	}
	return fallback
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the path or module involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithIssue selects the catalog entry for the error.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.issue = id
	return c
}

// WithSuggestion adds a suggestion. Can be called multiple times.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build creates an ActionableError from the context.
// Returns nil if no operation is set (operation is required).
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}

	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Issue:       c.issue,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build returned as an error, nil when no operation is set.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}
