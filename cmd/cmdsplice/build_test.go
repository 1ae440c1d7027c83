// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmdsplice/cmdsplice/internal/config"
	"github.com/cmdsplice/cmdsplice/internal/driver"
	"github.com/cmdsplice/cmdsplice/internal/pipeline"
	"github.com/cmdsplice/cmdsplice/internal/testutil"
	"github.com/cmdsplice/cmdsplice/internal/upstream"
	"github.com/cmdsplice/cmdsplice/pkg/cmdmodule"
)

// Tests in this file are not parallel: every command run installs the
// default slog logger.

type (
	staticConfig struct {
		cfg *config.Config
		err error
	}

	harness struct {
		cfg      *config.Config
		fetcher  *testutil.FakeFetcher
		builder  *testutil.FakeBuilder
		buildDir string
		stdout   bytes.Buffer
		stderr   bytes.Buffer
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := *s.cfg
	return &cfg, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		cfg:      config.DefaultConfig(),
		fetcher:  &testutil.FakeFetcher{},
		builder:  &testutil.FakeBuilder{},
		buildDir: filepath.Join(t.TempDir(), "build"),
	}
}

func (h *harness) run(args ...string) error {
	app := NewApp(Dependencies{
		Config:     staticConfig{cfg: h.cfg},
		NewFetcher: func(*config.Config) upstream.Fetcher { return h.fetcher },
		NewBuilder: func(*config.Config, io.Writer, io.Writer) driver.Builder { return h.builder },
		Stdout:     &h.stdout,
		Stderr:     &h.stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs(append([]string{"--build-dir", h.buildDir}, args...))
	return root.ExecuteContext(context.Background())
}

// writeModule creates a module named name declaring one command.
func writeModule(t *testing.T, name string) string {
	t.Helper()
	return testutil.MustWriteModule(t, filepath.Join(t.TempDir(), name),
		[]string{testutil.Declaration(name)},
		map[string]string{name + ".c": "#include \"server.h\"\n"})
}

func exitCode(t *testing.T, err error) driver.ExitCode {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v (%T), want *ExitError", err, err)
	}
	return exitErr.Code
}

func TestBuild_Success(t *testing.T) {
	h := newHarness(t)
	module := writeModule(t, "hello")

	if err := h.run(module); err != nil {
		t.Fatalf("run() error: %v\nstderr:\n%s", err, h.stderr.String())
	}

	if !strings.Contains(h.stdout.String(), completionNotice) {
		t.Errorf("stdout missing completion notice:\n%s", h.stdout.String())
	}
	if len(h.builder.Dirs()) != 1 {
		t.Errorf("builds = %d, want 1", len(h.builder.Dirs()))
	}

	tree := pipeline.NewBuildDirectory(h.buildDir).Tree()
	if _, err := os.Stat(tree.SrcFile("hello.c")); err != nil {
		t.Errorf("module source not copied: %v", err)
	}
	if _, err := os.Stat(tree.SrcFile("unused.c")); !os.IsNotExist(err) {
		t.Errorf("unused.c survived pruning: %v", err)
	}
	header, err := os.ReadFile(tree.HeaderPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(header), "void helloCommand(client *c);") {
		t.Errorf("server.h not patched:\n%s", header)
	}
	makefile, err := os.ReadFile(tree.MakefilePath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(makefile), "REDIS_SERVER_OBJ=hello.o adlist.o") {
		t.Errorf("Makefile not patched:\n%s", makefile)
	}
}

func TestBuild_ToolExitCodePropagates(t *testing.T) {
	h := newHarness(t)
	h.builder.Err = &driver.BuildToolError{Command: []string{"make"}, Code: 2}

	err := h.run(writeModule(t, "hello"))
	if got := exitCode(t, err); got != 2 {
		t.Errorf("exit code = %d, want 2", got)
	}
	if strings.Contains(h.stdout.String(), completionNotice) {
		t.Error("completion notice printed after a failed build")
	}
	if !strings.Contains(h.stderr.String(), "Rerun the same command to resume") {
		t.Errorf("stderr missing resume hint:\n%s", h.stderr.String())
	}
}

func TestBuild_ResumesAfterFailure(t *testing.T) {
	h := newHarness(t)
	module := writeModule(t, "hello")

	h.builder.Err = &driver.BuildToolError{Command: []string{"make"}, Code: 2}
	if err := h.run(module); err == nil {
		t.Fatal("first run succeeded, want build failure")
	}

	h.builder.Err = nil
	h.stdout.Reset()
	if err := h.run(module); err != nil {
		t.Fatalf("resumed run error: %v\nstderr:\n%s", err, h.stderr.String())
	}
	if h.fetcher.Clones() != 1 {
		t.Errorf("clones = %d, want 1", h.fetcher.Clones())
	}
	if !strings.Contains(h.stdout.String(), completionNotice) {
		t.Errorf("stdout missing completion notice:\n%s", h.stdout.String())
	}
}

func TestBuild_ChangedUpstreamRefusesResume(t *testing.T) {
	h := newHarness(t)
	module := writeModule(t, "hello")

	h.builder.Err = &driver.BuildToolError{Command: []string{"make"}, Code: 2}
	if err := h.run(module); err == nil {
		t.Fatal("first run succeeded, want build failure")
	}

	h.builder.Err = nil
	h.stderr.Reset()
	h.cfg.Upstream.GitRef = "7.2"
	h.cfg.Upstream.ArchiveURL = config.ArchiveURL(upstream.ArchiveURLFor(h.cfg.Upstream.GitURL, "7.2"))

	err := h.run(module)
	if got := exitCode(t, err); got != driver.ExitCodeGeneric {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(h.stderr.String(), "--force") {
		t.Errorf("stderr missing --force hint:\n%s", h.stderr.String())
	}
	if h.fetcher.Clones() != 1 {
		t.Errorf("clones = %d, want 1", h.fetcher.Clones())
	}
	if len(h.builder.Dirs()) != 1 {
		t.Errorf("builds = %d, want 1", len(h.builder.Dirs()))
	}
}

func TestBuild_ExistingDirectoryNeedsForce(t *testing.T) {
	h := newHarness(t)
	marker := filepath.Join(h.buildDir, "keep.txt")
	testutil.MustWriteFiles(t, h.buildDir, map[string]string{"keep.txt": "mine\n"})
	module := writeModule(t, "hello")

	err := h.run(module)
	if got := exitCode(t, err); got != driver.ExitCodeGeneric {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(h.stderr.String(), "--force") {
		t.Errorf("stderr missing --force hint:\n%s", h.stderr.String())
	}
	if h.fetcher.Clones() != 0 {
		t.Errorf("clones = %d, want 0", h.fetcher.Clones())
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("refused run touched the directory: %v", err)
	}

	h.stderr.Reset()
	if err := h.run("--force", module); err != nil {
		t.Fatalf("forced run error: %v\nstderr:\n%s", err, h.stderr.String())
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Errorf("forced run kept old content: %v", err)
	}
}

func TestBuild_MissingModule(t *testing.T) {
	h := newHarness(t)

	err := h.run(filepath.Join(t.TempDir(), "missing"))
	if got := exitCode(t, err); got != driver.ExitCodeGeneric {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(h.stderr.String(), "failed to load modules") {
		t.Errorf("stderr missing operation:\n%s", h.stderr.String())
	}
	if _, err := os.Stat(h.buildDir); !os.IsNotExist(err) {
		t.Errorf("build directory created for a missing module: %v", err)
	}
}

func TestBuild_ConfigError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config: staticConfig{err: &config.InvalidConfigError{FieldErrors: []error{config.ErrInvalidGitRef}}},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs([]string{writeModule(t, "hello")})

	err := root.ExecuteContext(context.Background())
	if got := exitCode(t, err); got != driver.ExitCodeGeneric {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(stderr.String(), "invalid config") {
		t.Errorf("stderr missing config error:\n%s", stderr.String())
	}
}

func TestValidate(t *testing.T) {
	h := newHarness(t)
	module := writeModule(t, "hello")

	if err := h.run("validate", module); err != nil {
		t.Fatalf("validate error: %v\nstderr:\n%s", err, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"helloCommand", "hello.c -> hello.o", "All modules are valid"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(h.buildDir); !os.IsNotExist(err) {
		t.Errorf("validate created the build directory: %v", err)
	}
}

func TestValidate_InvalidModule(t *testing.T) {
	h := newHarness(t)
	broken := t.TempDir()
	testutil.MustWriteFiles(t, broken, map[string]string{cmdmodule.ManifestFileName: "{not json"})

	err := h.run("validate", writeModule(t, "hello"), broken)
	if got := exitCode(t, err); got != driver.ExitCodeGeneric {
		t.Errorf("exit code = %d, want 1", got)
	}
	if !strings.Contains(h.stdout.String(), "Module is invalid") {
		t.Errorf("stdout missing invalid module report:\n%s", h.stdout.String())
	}
}
