// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchemaSource = `
#Manifest: {
	commands!: [...string]
	description?: string
}

#Settings: {
	jobs?: int & >=0
	dir?:  string
}
`

type testManifest struct {
	Commands    []string `json:"commands"`
	Description string   `json:"description,omitempty"`
}

var (
	manifestSchema = NewSchema([]byte(testSchemaSource), "#Manifest")
	settingsSchema = NewSchema([]byte(testSchemaSource), "#Settings")
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		data      string
		opts      []Option
		wantCmds  int
		wantErr   error
		wantInErr string
	}{
		{
			name:     "json manifest",
			data:     `{"commands": ["{\"foo\",fooCommand,1,\"r\",0,NULL,1,1,1,0,0}"], "description": "demo"}`,
			opts:     []Option{WithFilename("config.json")},
			wantCmds: 1,
		},
		{
			name:     "cue document",
			data:     "commands: []\n",
			opts:     []Option{WithFilename("manifest.cue")},
			wantCmds: 0,
		},
		{
			name:      "non-string element",
			data:      `{"commands": ["ok", 3]}`,
			opts:      []Option{WithFilename("config.json")},
			wantErr:   ErrInvalidDocument,
			wantInErr: "commands[1]",
		},
		{
			name:    "missing required field",
			data:    `{"description": "x"}`,
			opts:    []Option{WithJSON()},
			wantErr: ErrInvalidDocument,
		},
		{
			name:      "truncated json",
			data:      `{"commands": [`,
			opts:      []Option{WithFilename("config.json")},
			wantErr:   ErrInvalidDocument,
			wantInErr: "config.json",
		},
		{
			name:    "oversized document",
			data:    `{"commands": []}`,
			opts:    []Option{WithMaxSize(4)},
			wantErr: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode[testManifest](manifestSchema, []byte(tt.data), tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantInErr) {
					t.Errorf("Decode() error = %q, want it to contain %q", err, tt.wantInErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(got.Commands) != tt.wantCmds {
				t.Errorf("Commands = %v, want %d entries", got.Commands, tt.wantCmds)
			}
		})
	}
}

func TestSchema_UnifyPartialDocument(t *testing.T) {
	t.Parallel()

	v, err := settingsSchema.Unify([]byte("jobs: 4\n"), WithConcrete(false))
	if err != nil {
		t.Fatalf("Unify() error = %v", err)
	}
	var m map[string]any
	if err := v.Decode(&m); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, ok := m["dir"]; ok {
		t.Errorf("unset field decoded: %v", m)
	}

	_, err = settingsSchema.Unify([]byte("jobs: -1\n"), WithFilename("config.cue"), WithConcrete(false))
	var docErr *DocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("Unify() error = %v, want *DocumentError", err)
	}
	if docErr.File != "config.cue" || len(docErr.Problems) == 0 || docErr.Problems[0].Path != "jobs" {
		t.Errorf("DocumentError = %+v", docErr)
	}
}

func TestSchema_MissingDefinition(t *testing.T) {
	t.Parallel()

	schema := NewSchema([]byte(testSchemaSource), "#Missing")
	_, err := schema.Unify([]byte(`{}`))
	if err == nil || errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("Unify() error = %v, want a schema error", err)
	}
	if !strings.Contains(err.Error(), "#Missing") {
		t.Errorf("error should name the definition, got %v", err)
	}
}
