// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"strings"
)

type (
	// Fetcher obtains the upstream sources. Both operations block until
	// the transfer finishes and return a *FetchError on failure.
	Fetcher interface {
		// Clone creates the git working tree at dest.
		Clone(ctx context.Context, dest string) error
		// Download writes the zip archive of the same ref to dest.
		Download(ctx context.Context, dest string) error
	}

	// Source identifies an upstream: the repository and ref that are cloned,
	// and the archive of that same ref whose object list becomes the CoreSet.
	Source struct {
		GitURL     string
		Ref        string
		ArchiveURL string
	}

	// Remote fetches from a git server and an archive URL.
	Remote struct {
		Git     *GitFetcher
		Archive *ArchiveFetcher
	}
)

// ArchiveURLFor returns the GitHub-style archive URL of ref in the
// repository at gitURL: <repo>/archive/<ref>.zip.
func ArchiveURLFor(gitURL, ref string) string {
	repo := strings.TrimSuffix(strings.TrimSuffix(gitURL, "/"), ".git")
	return repo + "/archive/" + ref + ".zip"
}

// NewRemote returns a Remote cloning src.GitURL at src.Ref and downloading
// src.ArchiveURL.
func NewRemote(src Source) *Remote {
	return &Remote{
		Git:     NewGitFetcher(src.GitURL, src.Ref),
		Archive: NewArchiveFetcher(src.ArchiveURL),
	}
}

// Clone implements Fetcher.
func (r *Remote) Clone(ctx context.Context, dest string) error {
	return r.Git.Clone(ctx, dest)
}

// Download implements Fetcher.
func (r *Remote) Download(ctx context.Context, dest string) error {
	return r.Archive.Download(ctx, dest)
}
