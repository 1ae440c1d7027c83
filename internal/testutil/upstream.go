// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/cmdsplice/cmdsplice/internal/upstream"
)

// ArchiveRoot is the top-level directory of archives written by FakeFetcher.
const ArchiveRoot = "redis-unstable"

// Source is the upstream FakeFetcher pretends to fetch.
var Source = upstream.Source{
	GitURL:     "https://github.com/redis/redis",
	Ref:        "unstable",
	ArchiveURL: "https://github.com/redis/redis/archive/unstable.zip",
}

const (
	upstreamMakefile = "REDIS_SERVER_NAME=redis-server\n" +
		"REDIS_SERVER_OBJ=adlist.o server.o\n" +
		"REDIS_CLI_OBJ=anet.o redis-cli.o\n"

	upstreamHeader = "#ifndef __REDIS_H\n" +
		"/* Commands prototypes */\n" +
		"void pingCommand(client *c);\n" +
		"#endif\n"

	upstreamTable = "#include \"server.h\"\n" +
		"struct redisCommand redisCommandTable[] = {\n" +
		"    {\"ping\",pingCommand,-1,\"tF\",0,NULL,0,0,0,0,0}\n" +
		"};\n"
)

type (
	// FakeFetcher materialises a small upstream tree instead of reaching a
	// remote. It is safe for concurrent use.
	FakeFetcher struct {
		// Files overrides UpstreamFiles when set.
		Files map[string]string
		// CloneErr makes Clone fail with a FetchError wrapping it.
		CloneErr error

		mu        sync.Mutex
		clones    int
		downloads int
	}

	// FakeBuilder records the directories it was asked to build.
	FakeBuilder struct {
		// Err is returned from every Build.
		Err error
		// Object is written into src on every build when set.
		Object string

		mu   sync.Mutex
		dirs []string
	}
)

// UpstreamFiles returns the files of the fake upstream, relative to its root.
// The src directory carries the three patch targets, one core source with
// its object, one extra program source, an event-loop backend, a source and
// an object nothing builds, and a file the pruner ignores.
func UpstreamFiles() map[string]string {
	return map[string]string{
		"README.md":       "redis\n",
		"Makefile":        "all:\n\t$(MAKE) -C src\n",
		"src/Makefile":    upstreamMakefile,
		"src/server.h":    upstreamHeader,
		"src/server.c":    upstreamTable,
		"src/adlist.c":    "/* adlist */\n",
		"src/adlist.o":    "obj",
		"src/redis-cli.c": "/* cli */\n",
		"src/ae_epoll.c":  "/* epoll */\n",
		"src/unused.c":    "/* unused */\n",
		"src/stale.o":     "obj",
		"src/notes.txt":   "keep\n",
	}
}

func (f *FakeFetcher) files() map[string]string {
	if f.Files != nil {
		return maps.Clone(f.Files)
	}
	return UpstreamFiles()
}

// Clone writes the upstream files and an empty .git directory into dest.
func (f *FakeFetcher) Clone(_ context.Context, dest string) error {
	f.mu.Lock()
	f.clones++
	f.mu.Unlock()

	if f.CloneErr != nil {
		return &upstream.FetchError{Source: "fake", Op: "clone", Err: f.CloneErr}
	}
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	return writeFiles(dest, f.files())
}

// Download writes the upstream files as a zip archive under ArchiveRoot.
func (f *FakeFetcher) Download(_ context.Context, dest string) error {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	w := zip.NewWriter(out)
	for name, content := range f.files() {
		entry, err := w.Create(ArchiveRoot + "/" + name)
		if err == nil {
			_, err = io.WriteString(entry, content)
		}
		if err != nil {
			return errors.Join(err, out.Close())
		}
	}
	return errors.Join(w.Close(), out.Close())
}

// Clones returns the number of Clone calls.
func (f *FakeFetcher) Clones() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clones
}

// Downloads returns the number of Download calls.
func (f *FakeFetcher) Downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

// Build records dir, drops Object into its src directory and returns Err.
func (b *FakeBuilder) Build(_ context.Context, dir string) error {
	b.mu.Lock()
	b.dirs = append(b.dirs, dir)
	b.mu.Unlock()

	if b.Object != "" {
		if err := os.WriteFile(filepath.Join(dir, upstream.SrcDir, b.Object), []byte("obj"), 0o644); err != nil {
			return err
		}
	}
	return b.Err
}

// Dirs returns the directories built so far, in call order.
func (b *FakeBuilder) Dirs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.dirs...)
}
