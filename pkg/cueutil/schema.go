// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// DefaultMaxSize bounds the documents a Schema accepts (1MB). Manifests and
// checkpoints are a few hundred bytes.
const DefaultMaxSize int64 = 1 << 20

type (
	// Schema is one definition of an embedded CUE schema.
	Schema struct {
		source     []byte
		definition string
	}

	options struct {
		filename string
		concrete bool
		json     bool
		maxSize  int64
	}

	// Option adjusts how a document is read.
	Option func(*options)
)

// NewSchema returns the schema rooted at definition (e.g. "#Manifest") in source.
func NewSchema(source []byte, definition string) *Schema {
	return &Schema{source: source, definition: definition}
}

// WithFilename names the document in errors. A .json extension selects the
// JSON decoder.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
		if strings.EqualFold(filepath.Ext(name), ".json") {
			o.json = true
		}
	}
}

// WithJSON reads the document as JSON whatever its name.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithConcrete controls whether every field must have a concrete value after
// unification. Partial documents such as configuration overlays pass false.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(size int64) Option {
	return func(o *options) { o.maxSize = size }
}

func newOptions(opts []Option) options {
	o := options{filename: "<input>", concrete: true, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Unify compiles data and unifies it with the schema definition. The
// returned value has been validated.
func (s *Schema) Unify(data []byte, opts ...Option) (cue.Value, error) {
	return s.unify(data, newOptions(opts))
}

func (s *Schema) unify(data []byte, o options) (cue.Value, error) {
	if size := int64(len(data)); size > o.maxSize {
		return cue.Value{}, &TooLargeError{File: o.filename, Size: size, Limit: o.maxSize}
	}

	// A cue.Context is not safe for concurrent use, so every call gets its own.
	ctx := cuecontext.New()

	root := ctx.CompileBytes(s.source)
	if err := root.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema %s: %w", s.definition, err)
	}
	def := root.LookupPath(cue.ParsePath(s.definition))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema has no definition %s", s.definition)
	}

	doc, err := compile(ctx, data, o)
	if err != nil {
		return cue.Value{}, newDocumentError(o.filename, err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, newDocumentError(o.filename, err)
	}
	return unified, nil
}

func compile(ctx *cue.Context, data []byte, o options) (cue.Value, error) {
	if !o.json {
		v := ctx.CompileBytes(data, cue.Filename(o.filename))
		return v, v.Err()
	}
	expr, err := cuejson.Extract(o.filename, data)
	if err != nil {
		return cue.Value{}, err
	}
	v := ctx.BuildExpr(expr, cue.Filename(o.filename))
	return v, v.Err()
}

// Decode unifies data with schema and decodes the result into a T.
func Decode[T any](schema *Schema, data []byte, opts ...Option) (*T, error) {
	o := newOptions(opts)
	unified, err := schema.unify(data, o)
	if err != nil {
		return nil, err
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, newDocumentError(o.filename, err)
	}
	return &out, nil
}
