// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/cmdsplice/cmdsplice/pkg/cueutil"
)

// CheckpointVersion is the current buildstate.cue format version.
const CheckpointVersion = 1

//go:embed buildstate_schema.cue
var buildStateSchemaSource []byte

var buildStateSchema = cueutil.NewSchema(buildStateSchemaSource, "#BuildState")

// Checkpoint is the persisted progress of a build directory.
type Checkpoint struct {
	Version     int     `json:"version"`
	Fingerprint string  `json:"fingerprint"`
	State       State   `json:"state"`
	Completed   []State `json:"completed"`
	Failure     string  `json:"failure,omitempty"`
	Updated     string  `json:"updated"`
}

// NewCheckpoint returns a checkpoint for a fresh directory built from the
// plan with the given fingerprint.
func NewCheckpoint(fingerprint string) *Checkpoint {
	return &Checkpoint{
		Version:     CheckpointVersion,
		Fingerprint: fingerprint,
		State:       StateUninitialized,
	}
}

// LoadCheckpoint reads and validates the checkpoint at path.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build state: %w", err)
	}

	return cueutil.Decode[Checkpoint](buildStateSchema, data, cueutil.WithFilename(path))
}

// HasCompleted reports whether the entry action of s finished.
func (c *Checkpoint) HasCompleted(s State) bool {
	return slices.Contains(c.Completed, s)
}

// Enter records s as the current state and clears any earlier failure.
func (c *Checkpoint) Enter(s State) {
	c.State = s
	c.Failure = ""
}

// Complete records that the entry action of s finished.
func (c *Checkpoint) Complete(s State) {
	if !c.HasCompleted(s) {
		c.Completed = append(c.Completed, s)
	}
}

// Fail records the failure of the current state.
func (c *Checkpoint) Fail(err error) {
	msg := strings.ToValidUTF8(fmt.Sprintf("%s: %v", c.State, err), "?")
	c.Failure = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, msg)
	c.State = StateFailed
}

// Save writes the checkpoint to path through a temp file and rename.
func (c *Checkpoint) Save(path string) error {
	c.Updated = time.Now().UTC().Format(time.RFC3339)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".buildstate-*.cue")
	if err != nil {
		return fmt.Errorf("failed to create build state: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(c.toCUE()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to write build state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to write build state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename build state: %w", err)
	}
	return nil
}

// toCUE serializes the checkpoint to CUE format.
func (c *Checkpoint) toCUE() string {
	var sb strings.Builder

	sb.WriteString("// buildstate.cue - written by cmdsplice after every build step\n")
	sb.WriteString("// DO NOT EDIT MANUALLY\n\n")

	fmt.Fprintf(&sb, "version:     %d\n", c.Version)
	fmt.Fprintf(&sb, "fingerprint: %q\n", c.Fingerprint)
	fmt.Fprintf(&sb, "state:       %q\n", c.State)

	completed := make([]string, len(c.Completed))
	for i, s := range c.Completed {
		completed[i] = fmt.Sprintf("%q", s)
	}
	fmt.Fprintf(&sb, "completed: [%s]\n", strings.Join(completed, ", "))

	if c.Failure != "" {
		fmt.Fprintf(&sb, "failure: %q\n", c.Failure)
	}
	fmt.Fprintf(&sb, "updated: %q\n", c.Updated)

	return sb.String()
}
