// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmdsplice/cmdsplice/internal/plan"
	"github.com/cmdsplice/cmdsplice/internal/testutil"
)

var fooDecl = testutil.Declaration("foo")

// newTestPlan writes a module providing foo.c and foo.h and loads it.
func newTestPlan(t *testing.T) *plan.BuildPlan {
	t.Helper()

	dir := testutil.MustWriteModule(t, filepath.Join(t.TempDir(), "foo"), []string{fooDecl}, map[string]string{
		"foo.c": "#include \"server.h\"\nvoid fooCommand(client *c) {}\n",
		"foo.h": "void fooHelper(void);\n",
	})

	p, err := plan.Load(testutil.Source, []string{dir})
	if err != nil {
		t.Fatalf("plan.Load() error: %v", err)
	}
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	return testutil.MustReadFile(t, path)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
