// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmdsplice/cmdsplice/pkg/cueutil"
)

const (
	// ManifestFileName is the manifest file at the module root.
	ManifestFileName = "config.json"
	// SourcesDir holds the files copied into the upstream source directory.
	SourcesDir = "sources"
	// SourceExt marks files that are compiled.
	SourceExt = ".c"
	// ObjectExt is the extension of compiled objects.
	ObjectExt = ".o"
)

//go:embed manifest_schema.cue
var manifestSchemaSource []byte

var manifestSchema = cueutil.NewSchema(manifestSchemaSource, "#Manifest")

type (
	// ObjectFileName is the bare file name (no directory) of a compiled object.
	ObjectFileName string

	// Manifest is the decoded config.json of a module.
	Manifest struct {
		Commands []string `json:"commands"`
	}

	// CommandModule is a loaded module. It is immutable once loaded.
	CommandModule struct {
		// Dir is the absolute module directory.
		Dir string
		// SourceFiles are the absolute paths of every file under sources/,
		// in lexical order. All of them are copied; only *.c are compiled.
		SourceFiles []string
		// Commands are the raw manifest entries in manifest order.
		Commands []string
	}
)

// String returns the string representation of the ObjectFileName.
func (o ObjectFileName) String() string { return string(o) }

// ObjectName derives the object file produced by a source file. It returns
// false for files that are not compiled.
func ObjectName(sourcePath string) (ObjectFileName, bool) {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	if ext != SourceExt || base == ext {
		return "", false
	}
	return ObjectFileName(strings.TrimSuffix(base, ext) + ObjectExt), true
}

// Load reads the module at dir: its manifest and its source file list.
func Load(dir string) (*CommandModule, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	info, err := os.Stat(absDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &ModuleNotFoundError{Path: absDir, Reason: "directory does not exist"}
	case err != nil:
		return nil, fmt.Errorf("failed to stat module directory: %w", err)
	case !info.IsDir():
		return nil, &ModuleNotFoundError{Path: absDir, Reason: "not a directory"}
	}

	manifest, err := ReadManifest(filepath.Join(absDir, ManifestFileName))
	if err != nil {
		return nil, err
	}

	sources, err := collectSources(absDir)
	if err != nil {
		return nil, err
	}

	return &CommandModule{
		Dir:         absDir,
		SourceFiles: sources,
		Commands:    manifest.Commands,
	}, nil
}

// ReadManifest decodes a module manifest and checks that its command list
// is a list of strings.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ModuleNotFoundError{Path: path, Reason: "missing " + ManifestFileName}
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest, err := cueutil.Decode[Manifest](manifestSchema, data, cueutil.WithFilename(path))
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	return manifest, nil
}

// collectSources lists the regular files directly under sources/. A module
// without a sources/ directory contributes no files.
func collectSources(moduleDir string) ([]string, error) {
	sourcesDir := filepath.Join(moduleDir, SourcesDir)
	entries, err := os.ReadDir(sourcesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("module has no sources directory", "module", moduleDir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list module sources: %w", err)
	}

	var files []string
	for _, entry := range entries {
		path := filepath.Join(sourcesDir, entry.Name())
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// Follow the link; a dangling one is left for the copy step to report.
			if info, serr := os.Stat(path); serr == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			slog.Debug("skipping directory in module sources", "module", moduleDir, "dir", entry.Name())
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// Name returns the module directory name.
func (m *CommandModule) Name() string {
	return filepath.Base(m.Dir)
}

// ObjectFiles returns the object names derived from the module's C sources,
// in source order.
func (m *CommandModule) ObjectFiles() []ObjectFileName {
	var objects []ObjectFileName
	for _, src := range m.SourceFiles {
		if obj, ok := ObjectName(src); ok {
			objects = append(objects, obj)
		}
	}
	return objects
}

// Classify classifies every manifest entry in manifest order.
func (m *CommandModule) Classify() []Verdict {
	return ClassifyDeclarations(m.Commands)
}

// Declarations returns the accepted declarations in manifest order. Each
// rejected entry is logged as a warning and skipped.
func (m *CommandModule) Declarations() []Declaration {
	var decls []Declaration
	for _, v := range m.Classify() {
		if !v.Accepted() {
			slog.Warn("skipping invalid command definition",
				"module", m.Name(), "entry", v.Entry, "reason", v.Reason)
			continue
		}
		decls = append(decls, *v.Declaration)
	}
	return decls
}
