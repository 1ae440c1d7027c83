// SPDX-License-Identifier: MPL-2.0

// Package plan folds loaded command modules into a single immutable BuildPlan.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

type (
	// ObjectFileSet is an ordered set of object names, free of duplicates.
	ObjectFileSet []cmdmodule.ObjectFileName

	// CopyTarget is one module file to place in the upstream src directory.
	CopyTarget struct {
		// Source is the absolute path inside the module.
		Source string
		// Name is the file name inside src.
		Name string
		// Module is the owning module's name.
		Module string
	}

	// BuildPlan is everything a build needs to know about the modules,
	// computed once. Declarations, copy targets and objects are projections
	// of the same modules and are never modified after New returns.
	BuildPlan struct {
		source       upstream.Source
		modules      []*cmdmodule.CommandModule
		declarations []cmdmodule.Declaration
		objects      ObjectFileSet
		copyTargets  []CopyTarget
		warnings     []string
		fingerprint  string
	}
)

// Contains reports whether obj is in the set.
func (s ObjectFileSet) Contains(obj cmdmodule.ObjectFileName) bool {
	return slices.Contains(s, obj)
}

// Strings returns the object names as plain strings.
func (s ObjectFileSet) Strings() []string {
	out := make([]string, len(s))
	for i, obj := range s {
		out[i] = string(obj)
	}
	return out
}

// Load loads every module directory in argument order and builds the plan
// against src.
func Load(src upstream.Source, dirs []string) (*BuildPlan, error) {
	modules := make([]*cmdmodule.CommandModule, 0, len(dirs))
	for _, dir := range dirs {
		m, err := cmdmodule.Load(dir)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return New(src, modules), nil
}

// New folds modules, in order, into a BuildPlan spliced into src. Invalid manifest entries are
// skipped with a warning. Repeated object names are kept once and reported;
// so are files that two modules would copy to the same name.
func New(src upstream.Source, modules []*cmdmodule.CommandModule) *BuildPlan {
	p := &BuildPlan{source: src, modules: slices.Clone(modules)}

	objectOwner := make(map[cmdmodule.ObjectFileName]string)
	fileOwner := make(map[string]string)
	funcOwner := make(map[cmdmodule.FunctionName]string)

	for _, m := range modules {
		name := m.Name()

		for _, decl := range m.Declarations() {
			if owner, dup := funcOwner[decl.FunctionName]; dup {
				p.warn("function %s declared by both %s and %s", decl.FunctionName, owner, name)
			} else {
				funcOwner[decl.FunctionName] = name
			}
			p.declarations = append(p.declarations, decl)
		}

		for _, src := range m.SourceFiles {
			base := filepath.Base(src)
			if owner, dup := fileOwner[base]; dup {
				p.warn("file %s provided by both %s and %s; the copy from %s wins", base, owner, name, name)
			}
			fileOwner[base] = name
			p.copyTargets = append(p.copyTargets, CopyTarget{Source: src, Name: base, Module: name})
		}

		for _, obj := range m.ObjectFiles() {
			if owner, dup := objectOwner[obj]; dup {
				p.warn("object %s required by both %s and %s; listing it once", obj, owner, name)
				continue
			}
			objectOwner[obj] = name
			p.objects = append(p.objects, obj)
		}
	}

	p.fingerprint = p.computeFingerprint()
	return p
}

func (p *BuildPlan) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn(msg)
	p.warnings = append(p.warnings, msg)
}

// computeFingerprint hashes the parts of the plan that change the patched
// tree, starting with the upstream it is made from. Fields are length-prefixed so that no two plans collide by
// concatenation.
func (p *BuildPlan) computeFingerprint() string {
	h := sha256.New()
	write := func(tag string, values ...string) {
		fmt.Fprintf(h, "%s:%d\n", tag, len(values))
		for _, v := range values {
			fmt.Fprintf(h, "%d:%s\n", len(v), v)
		}
	}

	write("upstream", p.source.GitURL, p.source.Ref, p.source.ArchiveURL)

	dirs := make([]string, len(p.modules))
	for i, m := range p.modules {
		dirs[i] = m.Dir
	}
	write("modules", dirs...)

	raw := make([]string, len(p.declarations))
	for i, d := range p.declarations {
		raw[i] = d.Raw
	}
	write("declarations", raw...)
	write("objects", p.objects.Strings()...)

	files := make([]string, len(p.copyTargets))
	for i, c := range p.copyTargets {
		files[i] = c.Source
	}
	write("files", files...)

	return hex.EncodeToString(h.Sum(nil))
}

// Source returns the upstream the plan is spliced into.
func (p *BuildPlan) Source() upstream.Source { return p.source }

// Modules returns the modules in argument order.
func (p *BuildPlan) Modules() []*cmdmodule.CommandModule { return slices.Clone(p.modules) }

// Declarations returns the accepted declarations of all modules, in module
// argument order and then manifest order.
func (p *BuildPlan) Declarations() []cmdmodule.Declaration { return slices.Clone(p.declarations) }

// Objects returns the deduplicated object names in first-seen order.
func (p *BuildPlan) Objects() ObjectFileSet { return slices.Clone(p.objects) }

// CopyTargets returns every module file in copy order. When two modules ship
// the same file name the later one is copied last.
func (p *BuildPlan) CopyTargets() []CopyTarget { return slices.Clone(p.copyTargets) }

// Warnings returns the problems found while folding the modules.
func (p *BuildPlan) Warnings() []string { return slices.Clone(p.warnings) }

// Fingerprint identifies the plan. Two runs with the same upstream, modules,
// files and declarations share a fingerprint.
func (p *BuildPlan) Fingerprint() string { return p.fingerprint }

// CoreCollisions returns module objects that the upstream already builds.
// Such a module file replaces the upstream source of the same name.
func (p *BuildPlan) CoreCollisions(core upstream.CoreSet) []cmdmodule.ObjectFileName {
	var collisions []cmdmodule.ObjectFileName
	for _, obj := range p.objects {
		if core.Contains(obj) {
			collisions = append(collisions, obj)
		}
	}
	return collisions
}

// ObjectsToList returns the objects to append to the upstream object list:
// Objects without those the upstream already lists.
func (p *BuildPlan) ObjectsToList(core upstream.CoreSet) ObjectFileSet {
	var out ObjectFileSet
	for _, obj := range p.objects {
		if !core.Contains(obj) {
			out = append(out, obj)
		}
	}
	return out
}
