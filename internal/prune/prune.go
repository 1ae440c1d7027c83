// SPDX-License-Identifier: MPL-2.0

// Package prune removes stale sources and objects from the upstream src
// directory before module files are copied in.
//
// Everything that compiles to a protected object survives, so Redis' own
// objects are reused by the next incremental build. Everything else is
// removed: objects and sources left behind by modules of an earlier run, and
// upstream sources the server build does not use. Event-loop backends are
// always kept.
package prune

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

// Plan returns the absolute paths of the files to remove from tree's src
// directory, in lexical order. Only regular files directly inside src with a
// source or object extension are considered.
func Plan(tree upstream.Tree, core upstream.CoreSet) ([]string, error) {
	entries, err := os.ReadDir(tree.SrcPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &upstream.UpstreamLayoutError{Path: tree.SrcPath(), Reason: "source directory not found"}
		}
		return nil, fmt.Errorf("failed to list upstream sources: %w", err)
	}

	var toRemove []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if shouldRemove(entry.Name(), core) {
			toRemove = append(toRemove, tree.SrcFile(entry.Name()))
		}
	}
	slices.Sort(toRemove)
	return toRemove, nil
}

// shouldRemove implements (objects ∪ sources) − CoreSet − exempt for one file name.
func shouldRemove(name string, core upstream.CoreSet) bool {
	switch filepath.Ext(name) {
	case cmdmodule.ObjectExt:
		return !core.Contains(cmdmodule.ObjectFileName(name))
	case cmdmodule.SourceExt:
		return !core.ProtectsSource(name) && !upstream.IsExemptSource(name)
	default:
		return false
	}
}

// Apply removes the planned files. Files that are already gone are ignored,
// so applying the same plan twice is harmless.
func Apply(paths []string) error {
	for _, path := range paths {
		slog.Debug("pruning", "file", path)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to prune %s: %w", path, err)
		}
	}
	return nil
}

// Run plans and applies pruning, returning the removed paths. Files named in
// keep are left in place even when the plan would remove them.
func Run(tree upstream.Tree, core upstream.CoreSet, keep ...string) ([]string, error) {
	toRemove, err := Plan(tree, core)
	if err != nil {
		return nil, err
	}
	toRemove = slices.DeleteFunc(toRemove, func(path string) bool {
		return slices.Contains(keep, filepath.Base(path))
	})
	if len(toRemove) == 0 {
		slog.Debug("nothing to prune")
		return nil, nil
	}

	if err := Apply(toRemove); err != nil {
		return nil, err
	}
	slog.Info("pruned upstream tree", "removed", len(toRemove), "protected", len(core))
	return toRemove, nil
}
