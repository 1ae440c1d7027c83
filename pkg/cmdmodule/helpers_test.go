// SPDX-License-Identifier: MPL-2.0

package cmdmodule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// createModule writes a module with the given manifest commands and source
// files under parent and returns its path.
func createModule(t *testing.T, parent, name string, commands []string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(filepath.Join(dir, SourcesDir), 0o755); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	for fileName, content := range files {
		if err := os.WriteFile(filepath.Join(dir, SourcesDir, fileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
