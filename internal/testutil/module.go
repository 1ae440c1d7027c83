// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

// Declaration returns a well-formed command table entry for name, implemented
// by nameCommand.
func Declaration(name string) string {
	return `{"` + name + `",` + name + `Command,2,"r",0,NULL,1,1,1,0,0}`
}

// MustWriteModule creates the module dir with a manifest listing commands and
// the given files under sources/. It returns dir.
func MustWriteModule(t testing.TB, dir string, commands []string, sources map[string]string) string {
	t.Helper()

	if commands == nil {
		commands = []string{}
	}
	manifest, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		t.Fatalf("failed to encode manifest: %v", err)
	}

	files := map[string]string{cmdmodule.ManifestFileName: string(manifest)}
	for name, content := range sources {
		files[cmdmodule.SourcesDir+"/"+name] = content
	}
	MustWriteFiles(t, dir, files)
	MustMkdirAll(t, filepath.Join(dir, cmdmodule.SourcesDir))
	return dir
}
