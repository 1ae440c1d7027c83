// SPDX-License-Identifier: MPL-2.0

// Package patch splices module declarations into the upstream sources.
//
// Each target file has a fixed anchor. Generated text goes immediately after
// the first occurrence of the anchor and nothing else in the file changes.
// A file is patched once per fresh tree: the insertion leaves a detectable
// trace and a second attempt fails with AlreadyPatchedError.
package patch

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

const (
	// HeaderAnchor opens the prototype section of server.h.
	HeaderAnchor = "/* Commands prototypes */"
	// TableAnchor opens the command table in server.c.
	TableAnchor = "struct redisCommand redisCommandTable[] = {"
	// ObjectListAnchor starts the server object list in the Makefile.
	ObjectListAnchor = upstream.ObjectListVar + "="

	// StartMarker precedes generated C text.
	StartMarker = "/* custom commands start */"
	// EndMarker follows generated C text.
	EndMarker = "/* custom commands end */"

	// Indent is the upstream indentation of table entries.
	Indent = "    "
)

type (
	// Edit is a pending rewrite of one file.
	Edit struct {
		Path    string
		Content []byte
	}

	// Patch computes the patched content of a file from its current content.
	Patch func(path string, content []byte) ([]byte, error)
)

// HeaderInsertion renders one prototype per declaration between the markers.
func HeaderInsertion(decls []cmdmodule.Declaration) string {
	var sb strings.Builder
	sb.WriteString("\n" + StartMarker + "\n")
	for _, d := range decls {
		sb.WriteString(d.FunctionName.Prototype())
		sb.WriteByte('\n')
	}
	sb.WriteString(EndMarker)
	return sb.String()
}

// TableInsertion renders the raw declarations as table entries between the
// markers, each followed by a comma.
func TableInsertion(decls []cmdmodule.Declaration) string {
	var sb strings.Builder
	sb.WriteString("\n" + Indent + StartMarker + "\n")
	for _, d := range decls {
		sb.WriteString(Indent + d.Raw + ",\n")
	}
	sb.WriteString(Indent + EndMarker)
	return sb.String()
}

// ObjectListInsertion renders the objects space-separated with a trailing
// space, ready to precede the upstream's own list.
func ObjectListInsertion(objects []cmdmodule.ObjectFileName) string {
	if len(objects) == 0 {
		return ""
	}
	names := make([]string, len(objects))
	for i, obj := range objects {
		names[i] = string(obj)
	}
	return strings.Join(names, " ") + " "
}

// insertAfter splices insertion right after the first occurrence of anchor.
func insertAfter(path string, content []byte, anchor, insertion string) ([]byte, error) {
	idx := bytes.Index(content, []byte(anchor))
	if idx < 0 {
		return nil, &AnchorNotFoundError{Path: path, Anchor: anchor}
	}
	at := idx + len(anchor)

	result := make([]byte, 0, len(content)+len(insertion))
	result = append(result, content[:at]...)
	result = append(result, insertion...)
	result = append(result, content[at:]...)
	return result, nil
}

// HeaderPatch declares the functions of decls in server.h.
func HeaderPatch(decls []cmdmodule.Declaration) Patch {
	return func(path string, content []byte) ([]byte, error) {
		if bytes.Contains(content, []byte(EndMarker)) {
			return nil, &AlreadyPatchedError{Path: path, Marker: EndMarker}
		}
		return insertAfter(path, content, HeaderAnchor, HeaderInsertion(decls))
	}
}

// TablePatch adds the raw declarations to the command table in server.c.
func TablePatch(decls []cmdmodule.Declaration) Patch {
	return func(path string, content []byte) ([]byte, error) {
		if bytes.Contains(content, []byte(EndMarker)) {
			return nil, &AlreadyPatchedError{Path: path, Marker: EndMarker}
		}
		return insertAfter(path, content, TableAnchor, TableInsertion(decls))
	}
}

// ObjectListPatch prepends objects to the server object list. Makefile
// assignments cannot carry a trailing marker, so the exact insertion is
// what identifies a patched file. With no objects the file is unchanged.
func ObjectListPatch(objects []cmdmodule.ObjectFileName) Patch {
	return func(path string, content []byte) ([]byte, error) {
		insertion := ObjectListInsertion(objects)
		if !bytes.Contains(content, []byte(ObjectListAnchor)) {
			return nil, &AnchorNotFoundError{Path: path, Anchor: ObjectListAnchor}
		}
		if insertion == "" {
			return content, nil
		}
		if bytes.Contains(content, []byte(ObjectListAnchor+insertion)) {
			return nil, &AlreadyPatchedError{Path: path, Marker: ObjectListAnchor + insertion}
		}
		return insertAfter(path, content, ObjectListAnchor, insertion)
	}
}

// Prepare reads path and computes its patched content without writing.
func Prepare(path string, p Patch) (Edit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Edit{}, &upstream.UpstreamLayoutError{Path: path, Reason: "patch target not found"}
		}
		return Edit{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	patched, err := p(path, content)
	if err != nil {
		return Edit{}, err
	}
	return Edit{Path: path, Content: patched}, nil
}

// ApplyAll patches server.h, server.c and the Makefile of tree. Every file is
// checked before the first one is written, so an AnchorNotFoundError or
// AlreadyPatchedError leaves the whole tree untouched.
func ApplyAll(tree upstream.Tree, decls []cmdmodule.Declaration, objects []cmdmodule.ObjectFileName) error {
	targets := []struct {
		path  string
		patch Patch
	}{
		{tree.HeaderPath(), HeaderPatch(decls)},
		{tree.TablePath(), TablePatch(decls)},
		{tree.MakefilePath(), ObjectListPatch(objects)},
	}

	edits := make([]Edit, 0, len(targets))
	for _, target := range targets {
		edit, err := Prepare(target.path, target.patch)
		if err != nil {
			return err
		}
		edits = append(edits, edit)
	}

	for _, edit := range edits {
		if err := writeAtomic(edit.Path, edit.Content); err != nil {
			return err
		}
		slog.Debug("patched", "file", edit.Path)
	}
	slog.Info("patched upstream sources", "commands", len(decls), "objects", len(objects))
	return nil
}

// IsPatched reports whether every edit ApplyAll makes for objects is
// already in tree: server.h and server.c carry the end marker and the
// Makefile object list starts with objects.
func IsPatched(tree upstream.Tree, objects []cmdmodule.ObjectFileName) bool {
	for _, path := range []string{tree.HeaderPath(), tree.TablePath()} {
		content, err := os.ReadFile(path)
		if err != nil || !bytes.Contains(content, []byte(EndMarker)) {
			return false
		}
	}
	insertion := ObjectListInsertion(objects)
	if insertion == "" {
		return true
	}
	content, err := os.ReadFile(tree.MakefilePath())
	return err == nil && bytes.Contains(content, []byte(ObjectListAnchor+insertion))
}

// writeAtomic replaces path with content through a temp file in the same
// directory, keeping the original permissions.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cmdsplice-patch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode()) // best-effort permission sync
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}
