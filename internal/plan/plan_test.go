// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

const (
	fooDecl = `{"foo",fooCmd,1,"r",0,NULL,1,1,1,0,0}`
	barDecl = `{"bar",barCmd,2,"w",0,NULL,1,1,1,0,0}`
	badDecl = `{"bad",badCmd,1,"r",0,NULL,1,1,1,0}"`
)

var unstable = upstream.Source{
	GitURL:     "https://github.com/redis/redis",
	Ref:        "unstable",
	ArchiveURL: "https://github.com/redis/redis/archive/unstable.zip",
}

func writeModule(t *testing.T, parent, name string, commands []string, files ...string) string {
	t.Helper()

	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(filepath.Join(dir, cmdmodule.SourcesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cmdmodule.ManifestFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, cmdmodule.SourcesDir, f), []byte("/* "+name+" */\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad_TwoModules(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	a := writeModule(t, tmp, "a", []string{fooDecl, badDecl}, "foo.c", "foo.h")
	b := writeModule(t, tmp, "b", []string{barDecl}, "bar.c")

	p, err := Load(unstable, []string{a, b})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	decls := p.Declarations()
	if len(decls) != 2 || decls[0].Raw != fooDecl || decls[1].Raw != barDecl {
		t.Errorf("Declarations() = %+v, want foo then bar", decls)
	}
	if got, want := p.Objects(), (ObjectFileSet{"foo.o", "bar.o"}); !slices.Equal(got, want) {
		t.Errorf("Objects() = %v, want %v", got, want)
	}

	var names []string
	for _, c := range p.CopyTargets() {
		names = append(names, c.Module+"/"+c.Name)
	}
	if want := []string{"a/foo.c", "a/foo.h", "b/bar.c"}; !slices.Equal(names, want) {
		t.Errorf("CopyTargets() = %v, want %v", names, want)
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("Warnings() = %v, want none", p.Warnings())
	}
}

func TestLoad_StopsAtFirstBadModule(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	good := writeModule(t, tmp, "good", []string{fooDecl}, "foo.c")

	_, err := Load(unstable, []string{good, filepath.Join(tmp, "missing")})
	if !errors.Is(err, cmdmodule.ErrModuleNotFound) {
		t.Fatalf("Load() error = %v, want ErrModuleNotFound", err)
	}
}

func TestNew_DuplicatesAreWarnedAndDeduplicated(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	a := writeModule(t, tmp, "a", []string{fooDecl}, "shared.c", "a.c")
	b := writeModule(t, tmp, "b", []string{fooDecl}, "shared.c")

	p, err := Load(unstable, []string{a, b})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got, want := p.Objects(), (ObjectFileSet{"a.o", "shared.o"}); !slices.Equal(got, want) {
		t.Errorf("Objects() = %v, want %v", got, want)
	}
	// One warning each for the object, the copied file and the function.
	if n := len(p.Warnings()); n != 3 {
		t.Errorf("Warnings() = %v, want 3", p.Warnings())
	}
	if n := len(p.CopyTargets()); n != 3 {
		t.Errorf("CopyTargets() has %d entries, want all 3 files", n)
	}
}

func TestBuildPlan_IsImmutable(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p, err := Load(unstable, []string{writeModule(t, tmp, "a", []string{fooDecl}, "foo.c")})
	if err != nil {
		t.Fatal(err)
	}

	objs := p.Objects()
	objs[0] = "tampered.o"
	decls := p.Declarations()
	decls[0].Raw = "tampered"

	if p.Objects()[0] != "foo.o" || p.Declarations()[0].Raw != fooDecl {
		t.Error("mutating returned slices changed the plan")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	a := writeModule(t, tmp, "a", []string{fooDecl}, "foo.c")
	b := writeModule(t, tmp, "b", []string{barDecl}, "bar.c")

	load := func(dirs ...string) string {
		t.Helper()
		p, err := Load(unstable, dirs)
		if err != nil {
			t.Fatal(err)
		}
		return p.Fingerprint()
	}

	ab := load(a, b)
	if ab != load(a, b) {
		t.Error("fingerprint must be stable for the same modules")
	}
	if ab == load(b, a) {
		t.Error("fingerprint must depend on module order")
	}
	if ab == load(a) {
		t.Error("fingerprint must depend on the module set")
	}
	if len(ab) != 64 {
		t.Errorf("fingerprint %q is not a hex SHA-256", ab)
	}
}

func TestFingerprint_DependsOnUpstream(t *testing.T) {
	t.Parallel()

	m, err := cmdmodule.Load(writeModule(t, t.TempDir(), "a", []string{fooDecl}, "foo.c"))
	if err != nil {
		t.Fatal(err)
	}
	modules := []*cmdmodule.CommandModule{m}

	base := New(unstable, modules).Fingerprint()

	tagged := unstable
	tagged.Ref = "7.2"
	tagged.ArchiveURL = "https://github.com/redis/redis/archive/7.2.zip"
	mirror := unstable
	mirror.GitURL = "https://git.example.com/redis"

	for name, src := range map[string]upstream.Source{"ref": tagged, "repository": mirror} {
		if New(src, modules).Fingerprint() == base {
			t.Errorf("changing the upstream %s kept the fingerprint", name)
		}
	}
	if got := New(unstable, modules).Source(); got != unstable {
		t.Errorf("Source() = %+v, want %+v", got, unstable)
	}
}

func TestCoreCollisionsAndObjectsToList(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p, err := Load(unstable, []string{writeModule(t, tmp, "a", []string{fooDecl}, "server.c", "foo.c")})
	if err != nil {
		t.Fatal(err)
	}

	core := upstream.NewCoreSet("server.o", "ae.o")
	if got := p.CoreCollisions(core); !slices.Equal(got, []cmdmodule.ObjectFileName{"server.o"}) {
		t.Errorf("CoreCollisions() = %v, want [server.o]", got)
	}
	if got := p.ObjectsToList(core); !slices.Equal(got, ObjectFileSet{"foo.o"}) {
		t.Errorf("ObjectsToList() = %v, want [foo.o]", got)
	}
}
