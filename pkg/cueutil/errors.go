// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrInvalidDocument is the sentinel behind DocumentError.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrTooLarge is the sentinel behind TooLargeError.
	ErrTooLarge = errors.New("document too large")
)

type (
	// Problem is one field-level complaint about a document.
	Problem struct {
		// Path is the JSON path of the field, e.g. "commands[2]". Empty for
		// problems with the document as a whole.
		Path string
		// Line is the 1-based line in the document, 0 when unknown.
		Line    int
		Message string
	}

	// DocumentError reports a document that does not satisfy its schema or
	// cannot be parsed.
	DocumentError struct {
		File     string
		Problems []Problem
	}

	// TooLargeError reports a document over the size limit.
	TooLargeError struct {
		File  string
		Size  int64
		Limit int64
	}
)

func (p Problem) String() string {
	var sb strings.Builder
	if p.Line > 0 {
		sb.WriteString("line ")
		sb.WriteString(strconv.Itoa(p.Line))
		sb.WriteString(": ")
	}
	if p.Path != "" {
		sb.WriteString(p.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(p.Message)
	return sb.String()
}

func (e *DocumentError) Error() string {
	switch len(e.Problems) {
	case 0:
		return e.File + ": invalid document"
	case 1:
		return e.File + ": " + e.Problems[0].String()
	}
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("%s: %d problems:\n  %s", e.File, len(e.Problems), strings.Join(lines, "\n  "))
}

func (e *DocumentError) Unwrap() error { return ErrInvalidDocument }

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds the %d byte limit", e.File, e.Size, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// newDocumentError splits a CUE error list into one Problem per entry.
func newDocumentError(file string, err error) *DocumentError {
	docErr := &DocumentError{File: file}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		docErr.Problems = []Problem{{Message: err.Error()}}
		return docErr
	}
	for _, e := range list {
		format, args := e.Msg()
		p := Problem{
			Path:    JSONPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		}
		if pos := e.Position(); pos.IsValid() {
			p.Line = pos.Line()
		}
		docErr.Problems = append(docErr.Problems, p)
	}
	return docErr
}

// JSONPath renders CUE path selectors the way they read in a JSON document:
// list indices in brackets, fields joined by dots.
func JSONPath(selectors []string) string {
	var sb strings.Builder
	for i, sel := range selectors {
		if _, err := strconv.Atoi(sel); err == nil && i > 0 {
			sb.WriteString("[" + sel + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(sel)
	}
	return sb.String()
}
