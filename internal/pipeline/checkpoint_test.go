// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const testFingerprint = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestCheckpoint_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CheckpointName)
	c := NewCheckpoint(testFingerprint)
	c.Enter(StateFetching)
	c.Complete(StateFetching)
	c.Enter(StatePruning)
	c.Fail(errors.New("disk \"full\"\n\tretry later"))

	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint() error: %v\n%s", err, readFile(t, path))
	}
	if got.Fingerprint != testFingerprint || got.Version != CheckpointVersion {
		t.Errorf("loaded %+v", got)
	}
	if got.State != StateFailed {
		t.Errorf("State = %q, want failed", got.State)
	}
	if !slices.Equal(got.Completed, []State{StateFetching}) {
		t.Errorf("Completed = %v, want [fetching]", got.Completed)
	}
	if !strings.HasPrefix(got.Failure, "pruning: disk \"full\"") || strings.ContainsAny(got.Failure, "\n\t") {
		t.Errorf("Failure = %q", got.Failure)
	}
	if got.Updated == "" {
		t.Error("Updated is empty")
	}
}

func TestCheckpoint_CompleteIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewCheckpoint(testFingerprint)
	c.Complete(StateCopying)
	c.Complete(StateCopying)
	if len(c.Completed) != 1 || !c.HasCompleted(StateCopying) || c.HasCompleted(StatePatching) {
		t.Errorf("Completed = %v", c.Completed)
	}
}

func TestLoadCheckpoint_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown state",
			content: `version: 1, fingerprint: "` + testFingerprint + `", state: "linking", completed: [], updated: "2026-01-02T03:04:05Z"`,
		},
		{
			name:    "short fingerprint",
			content: `version: 1, fingerprint: "abc", state: "fetching", completed: [], updated: "2026-01-02T03:04:05Z"`,
		},
		{
			name:    "unknown field",
			content: `version: 1, fingerprint: "` + testFingerprint + `", state: "fetching", completed: [], updated: "2026-01-02T03:04:05Z", extra: 1`,
		},
		{
			name:    "missing state",
			content: `version: 1, fingerprint: "` + testFingerprint + `", completed: [], updated: "2026-01-02T03:04:05Z"`,
		},
		{
			name:    "not cue",
			content: `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), CheckpointName)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadCheckpoint(path); err == nil {
				t.Error("LoadCheckpoint() succeeded, want error")
			}
		})
	}
}
