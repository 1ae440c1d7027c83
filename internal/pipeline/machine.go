// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cmdsplice/cmdsplice/internal/driver"
	"github.com/cmdsplice/cmdsplice/internal/patch"
	"github.com/cmdsplice/cmdsplice/internal/plan"
	"github.com/cmdsplice/cmdsplice/internal/prune"
	"github.com/cmdsplice/cmdsplice/internal/upstream"
)

// Machine runs a plan in a leased build directory. Each working state has an
// entry action; a failing action moves the directory to StateFailed and the
// run stops.
type Machine struct {
	lease   *Lease
	plan    *plan.BuildPlan
	fetcher upstream.Fetcher
	builder driver.Builder

	// core is read from the reference tree during Fetching.
	core upstream.CoreSet
}

// NewMachine returns a machine for p in the directory held by lease.
func NewMachine(lease *Lease, p *plan.BuildPlan, fetcher upstream.Fetcher, builder driver.Builder) *Machine {
	return &Machine{lease: lease, plan: p, fetcher: fetcher, builder: builder}
}

// State returns the current state of the build directory.
func (m *Machine) State() State { return m.lease.Checkpoint.State }

// Run drives the directory to StateComplete. On failure the returned error
// is a *StepError naming the state whose action failed.
func (m *Machine) Run(ctx context.Context) error {
	for state := StateUninitialized.Next(); !state.IsTerminal(); state = state.Next() {
		if err := ctx.Err(); err != nil {
			return m.fail(state, err)
		}

		m.lease.Checkpoint.Enter(state)
		if err := m.lease.Save(); err != nil {
			return &StepError{State: state, Err: err}
		}
		slog.Info("entering state", "state", state)

		if err := m.action(state)(ctx); err != nil {
			return m.fail(state, err)
		}

		m.lease.Checkpoint.Complete(state)
		if err := m.lease.Save(); err != nil {
			return &StepError{State: state, Err: err}
		}
	}

	m.lease.Checkpoint.Enter(StateComplete)
	if err := m.lease.Save(); err != nil {
		return &StepError{State: StateComplete, Err: err}
	}
	slog.Info("build complete", "tree", m.lease.Dir.Tree().Root)
	return nil
}

func (m *Machine) action(s State) func(context.Context) error {
	switch s {
	case StateFetching:
		return m.fetch
	case StatePruning:
		return m.prune
	case StateCopying:
		return m.copyModules
	case StatePatching:
		return m.patch
	case StateBuilding:
		return m.build
	default:
		return func(context.Context) error { return &InvalidStateError{Value: s} }
	}
}

func (m *Machine) fail(s State, err error) error {
	m.lease.Checkpoint.Enter(s)
	m.lease.Checkpoint.Fail(err)
	if saveErr := m.lease.Save(); saveErr != nil {
		slog.Warn("failed to record build failure", "error", saveErr)
	}
	return &StepError{State: s, Err: err}
}

// fetch clones the working tree, downloads the archive and unpacks the
// reference copy, skipping each output that is already present.
func (m *Machine) fetch(ctx context.Context) error {
	tree := m.lease.Dir.Tree()
	if exists(filepath.Join(tree.Root, ".git")) && exists(tree.MakefilePath()) {
		slog.Debug("working tree present, skipping clone", "dir", tree.Root)
	} else {
		if err := os.RemoveAll(tree.Root); err != nil {
			return fmt.Errorf("failed to clear partial tree: %w", err)
		}
		if err := m.fetcher.Clone(ctx, tree.Root); err != nil {
			return err
		}
	}

	archive := m.lease.Dir.ArchivePath()
	if exists(archive) {
		slog.Debug("archive present, skipping download", "path", archive)
	} else if err := m.fetcher.Download(ctx, archive); err != nil {
		return err
	}

	ref := m.lease.Dir.Reference()
	if exists(ref.MakefilePath()) {
		slog.Debug("reference tree present, skipping unpack", "dir", ref.Root)
	} else if err := unpackReference(archive, ref.Root); err != nil {
		return err
	}

	core, err := upstream.LoadCoreSet(ref.MakefilePath())
	if err != nil {
		return err
	}
	m.core = core
	return nil
}

// unpackReference unzips into a sibling directory and renames it into
// place, so a present reference tree is always complete.
func unpackReference(archive, dest string) error {
	staging := dest + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear %s: %w", staging, err)
	}
	if err := upstream.Unzip(archive, staging); err != nil {
		_ = os.RemoveAll(staging) // Best-effort cleanup
		return err
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dest, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("failed to move reference tree into place: %w", err)
	}
	return nil
}

// prune removes stale sources and objects. Files the plan itself places in
// src are kept so a resumed run does not throw away their objects.
func (m *Machine) prune(context.Context) error {
	_, err := prune.Run(m.lease.Dir.Tree(), m.core, m.ownedNames()...)
	return err
}

// ownedNames returns the src file names that come from the plan.
func (m *Machine) ownedNames() []string {
	names := m.plan.Objects().Strings()
	for _, target := range m.plan.CopyTargets() {
		names = append(names, target.Name)
	}
	return names
}

// copyModules places every module file in src, skipping identical files.
func (m *Machine) copyModules(context.Context) error {
	tree := m.lease.Dir.Tree()

	if collisions := m.plan.CoreCollisions(m.core); len(collisions) > 0 {
		slog.Warn("module files replace upstream sources", "objects", plan.ObjectFileSet(collisions).Strings())
	}

	copied := 0
	for _, target := range m.plan.CopyTargets() {
		dest := tree.SrcFile(target.Name)
		same, err := sameContent(target.Source, dest)
		if err != nil {
			return err
		}
		if same {
			continue
		}
		if err := copyFile(target.Source, dest); err != nil {
			return err
		}
		slog.Debug("copied module file", "module", target.Module, "file", target.Name)
		copied++
	}
	slog.Info("copied module files", "copied", copied, "total", len(m.plan.CopyTargets()))
	return nil
}

// patch splices the declarations in once per tree. A tree carrying only
// some of the edits fails with an AlreadyPatchedError.
func (m *Machine) patch(context.Context) error {
	tree := m.lease.Dir.Tree()
	objects := m.plan.ObjectsToList(m.core)
	if patch.IsPatched(tree, objects) {
		slog.Debug("tree already patched, skipping")
		return nil
	}
	return patch.ApplyAll(tree, m.plan.Declarations(), objects)
}

// build always runs; the build tool decides what is up to date.
func (m *Machine) build(ctx context.Context) error {
	return m.builder.Build(ctx, m.lease.Dir.Tree().Root)
}
