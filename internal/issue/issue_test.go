// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		ModuleNotFoundId,
		ManifestParseErrorId,
		UpstreamLayoutErrorId,
		AnchorNotFoundId,
		AlreadyPatchedId,
		FetchFailedId,
		BuildToolFailedId,
		BuildDirectoryExistsId,
		BuildDirectoryLockedId,
		ConfigLoadFailedId,
	}
}

func TestId_Constants(t *testing.T) {
	t.Parallel()

	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if ModuleNotFoundId != 1 {
		t.Errorf("ModuleNotFoundId = %d, want 1", ModuleNotFoundId)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	for _, id := range allIds() {
		issue := Get(id)
		if issue == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if issue.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, issue.Id())
		}
	}

	if Get(Id(9999)) != nil {
		t.Error("Get(9999) should return nil")
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	if got, want := len(Values()), len(allIds()); got != want {
		t.Errorf("len(Values()) = %d, want %d", got, want)
	}
}

func TestAllIssuesHaveContent(t *testing.T) {
	t.Parallel()

	for _, issue := range Values() {
		msg := strings.TrimSpace(string(issue.MarkdownMsg()))
		if msg == "" {
			t.Errorf("issue %d has empty markdown", issue.Id())
		}
		if !strings.HasPrefix(msg, "# ") {
			t.Errorf("issue %d should start with a heading, got %q", issue.Id(), msg[:min(20, len(msg))])
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	issue := &Issue{
		id:       FetchFailedId,
		docLinks: []HttpLink{"https://example.com/docs"},
		extLinks: []HttpLink{"https://example.com/ext"},
	}

	docs := issue.DocLinks()
	docs[0] = "mutated"
	if issue.docLinks[0] != "https://example.com/docs" {
		t.Error("DocLinks() should return a copy")
	}

	ext := issue.ExtLinks()
	ext[0] = "mutated"
	if issue.extLinks[0] != "https://example.com/ext" {
		t.Error("ExtLinks() should return a copy")
	}
}

// stubRender swaps the glamour renderer for an identity function.
// Tests using it must not run in parallel.
func stubRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestIssue_Render(t *testing.T) {
	stubRender(t)

	out, err := Get(AnchorNotFoundId).Render("dark")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "anchor") {
		t.Errorf("rendered output should mention the anchor, got %q", out)
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	stubRender(t)

	issue := &Issue{
		id:       BuildToolFailedId,
		mdMsg:    "# Test",
		docLinks: []HttpLink{"https://example.com/build"},
		extLinks: []HttpLink{"https://example.com/ext"},
	}
	out, err := issue.Render("dark")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "https://example.com/ext") {
		t.Errorf("rendered output should contain the links section, got %q", out)
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	stubRender(t)

	out, err := (&Issue{id: BuildToolFailedId, mdMsg: "# Test"}).Render("dark")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(out, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, issue := range Values() {
		if _, err := issue.Render("dark"); err != nil {
			t.Errorf("issue %d failed to render: %v", issue.Id(), err)
		}
	}
}
