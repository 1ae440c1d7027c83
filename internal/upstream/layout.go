// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"path/filepath"
)

const (
	// SrcDir is the directory holding sources, objects and the Makefile.
	SrcDir = "src"
	// MakefileName is the build configuration that lists the server objects.
	MakefileName = "Makefile"
	// HeaderFile declares the command prototypes.
	HeaderFile = "server.h"
	// TableFile defines the command dispatch table.
	TableFile = "server.c"
)

// Tree is an upstream source tree rooted at Root.
type Tree struct {
	Root string
}

// NewTree returns the tree rooted at root.
func NewTree(root string) Tree {
	return Tree{Root: root}
}

// SrcPath returns the absolute src directory.
func (t Tree) SrcPath() string { return filepath.Join(t.Root, SrcDir) }

// MakefilePath returns src/Makefile.
func (t Tree) MakefilePath() string { return filepath.Join(t.Root, SrcDir, MakefileName) }

// HeaderPath returns src/server.h.
func (t Tree) HeaderPath() string { return filepath.Join(t.Root, SrcDir, HeaderFile) }

// TablePath returns src/server.c.
func (t Tree) TablePath() string { return filepath.Join(t.Root, SrcDir, TableFile) }

// SrcFile returns the path of name inside src.
func (t Tree) SrcFile(name string) string { return filepath.Join(t.Root, SrcDir, name) }
