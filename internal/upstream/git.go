// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GitFetcher clones the upstream repository.
type GitFetcher struct {
	// URL is the repository to clone.
	URL string
	// Ref is a branch or tag name.
	Ref string
	// Depth limits history; 0 clones everything.
	Depth int
	// Progress receives the remote's progress messages when set.
	Progress io.Writer

	auth transport.AuthMethod
}

// NewGitFetcher returns a shallow fetcher for url at ref, with credentials
// picked from the environment.
func NewGitFetcher(url, ref string) *GitFetcher {
	f := &GitFetcher{URL: url, Ref: ref, Depth: 1}
	f.setupAuth()
	return f
}

// Clone clones the repository into dest and checks out Ref. Ref is tried as
// a branch first and then as a tag. A failed attempt leaves no directory
// behind.
func (f *GitFetcher) Clone(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &FetchError{Source: f.URL, Op: "clone", Err: fmt.Errorf("failed to create parent directory: %w", err)}
	}

	refs := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(f.Ref),
		plumbing.NewTagReferenceName(f.Ref),
	}

	var lastErr error
	for _, ref := range refs {
		slog.Debug("cloning upstream", "url", f.URL, "ref", ref.String(), "dest", dest)
		err := f.cloneRef(ctx, dest, ref)
		if err == nil {
			return nil
		}
		lastErr = err
		// Clean up failed attempt (best-effort)
		_ = os.RemoveAll(dest)
		if ctx.Err() != nil {
			break
		}
	}

	return &FetchError{Source: f.URL, Op: "clone", Err: fmt.Errorf("ref %s: %w", f.Ref, lastErr)}
}

// cloneRef clones one reference. The worktree and the .git directory are
// laid out exactly as git.PlainClone would, through billy filesystems.
func (f *GitFetcher) cloneRef(ctx context.Context, dest string, ref plumbing.ReferenceName) error {
	worktree := osfs.New(dest)
	dotGit := osfs.New(filepath.Join(dest, git.GitDirName))
	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())

	_, err := git.CloneContext(ctx, storage, worktree, &git.CloneOptions{
		URL:           f.URL,
		Auth:          f.auth,
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         f.Depth,
		Progress:      f.Progress,
	})
	return err
}

// setupAuth picks credentials matching the URL scheme. Public HTTPS
// repositories need none.
func (f *GitFetcher) setupAuth() {
	if isSSHURL(f.URL) {
		f.auth = trySSHAuth()
		return
	}
	f.auth = tryHTTPAuth()
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "ssh://") || strings.HasPrefix(url, "git@")
}

// trySSHAuth loads the first usable key from the common locations.
func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	keyPaths := []string{
		filepath.Join(homeDir, ".ssh", "id_ed25519"),
		filepath.Join(homeDir, ".ssh", "id_rsa"),
		filepath.Join(homeDir, ".ssh", "id_ecdsa"),
	}

	for _, keyPath := range keyPaths {
		if _, err := os.Stat(keyPath); err == nil {
			auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
			if err == nil {
				return auth
			}
		}
	}

	return nil
}

// tryHTTPAuth uses a token from GITHUB_TOKEN or GIT_TOKEN.
func tryHTTPAuth() transport.AuthMethod {
	for _, env := range []string{"GITHUB_TOKEN", "GIT_TOKEN"} {
		if token := os.Getenv(env); token != "" {
			return &http.BasicAuth{
				Username: "x-access-token",
				Password: token,
			}
		}
	}
	return nil
}
