/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/oauth2"
)

type staticTokenSource string

func (s staticTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: string(s)}, nil
}

var testAuthor = &object.Signature{
	Name:  "Test",
	Email: "test@example.com",
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content, msg string) plumbing.Hash {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	file := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add: %v", err)
	}

	author := *testAuthor
	author.When = time.Now()
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: &author})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash
}

// initTestRepo creates a repository with a master branch and a feature branch
// carrying a file with trailing whitespace. HEAD is left on master.
func initTestRepo(t *testing.T) (string, plumbing.Hash) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	base := commitFile(t, repo, dir, "README.md", "# test\n", "initial")
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))); err != nil {
		t.Fatalf("SetReference: %v", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("master"), base)); err != nil {
		t.Fatalf("SetReference: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature"), Create: true}); err != nil {
		t.Fatalf("Checkout feature: %v", err)
	}
	head := commitFile(t, repo, dir, "src/foo.txt", "hello   \n\n\n", "add foo")

	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master"), Force: true}); err != nil {
		t.Fatalf("Checkout master: %v", err)
	}
	return dir, head
}

// cloneWorkspace clones origin the way a CI runner would, leaving the
// workspace on master.
func cloneWorkspace(t *testing.T, origin string) string {
	t.Helper()

	dir := t.TempDir()
	if _, err := git.PlainClone(dir, false, &git.CloneOptions{URL: origin}); err != nil {
		t.Fatalf("PlainClone: %v", err)
	}
	return dir
}

func TestRemoteURL(t *testing.T) {
	tests := []struct {
		server, repo, want string
	}{
		{"https://github.com", "octo/hello", "https://github.com/octo/hello.git"},
		{"https://ghe.example.com/", "org/repo", "https://ghe.example.com/org/repo.git"},
	}
	for _, tc := range tests {
		if got := RemoteURL(tc.server, tc.repo); got != tc.want {
			t.Errorf("RemoteURL(%q, %q): got = %q, wanted = %q", tc.server, tc.repo, got, tc.want)
		}
	}
}

func TestOpenRequiresTokenSource(t *testing.T) {
	if _, err := Open(context.Background(), t.TempDir(), nil); err == nil {
		t.Error("Open: got = nil error, wanted error for nil token source")
	}
}

func TestAddRemote(t *testing.T) {
	ctx := context.Background()
	origin, _ := initTestRepo(t)
	ws := cloneWorkspace(t, origin)

	r, err := Open(ctx, ws, staticTokenSource("token"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := r.AddRemote(ctx, "repo", origin); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if err := r.AddRemote(ctx, "repo", origin); err != nil {
		t.Errorf("AddRemote again: got = %v, wanted nil", err)
	}
	if err := r.AddRemote(ctx, "repo", "https://example.com/other.git"); err == nil {
		t.Error("AddRemote with a different url: got = nil, wanted error")
	}
}

func TestCheckoutFixCommitPush(t *testing.T) {
	ctx := context.Background()
	origin, featureHead := initTestRepo(t)
	ws := cloneWorkspace(t, origin)

	r, err := Open(ctx, ws, staticTokenSource("token"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.AddRemote(ctx, "repo", origin); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if err := r.Fetch(ctx, "repo"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := r.Fetch(ctx, "repo"); err != nil {
		t.Fatalf("Fetch again: %v", err)
	}
	if err := r.Checkout(ctx, "repo", "feature"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	head, err := r.Repo().Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Hash() != featureHead || head.Name() != plumbing.NewBranchReferenceName("feature") {
		t.Fatalf("Head: got = %s@%s, wanted = feature@%s", head.Name(), head.Hash(), featureHead)
	}

	dirty, err := r.IsDirty(ctx)
	if err != nil {
		t.Fatalf("IsDirty: %v", err)
	}
	if dirty {
		t.Error("IsDirty after checkout: got = true, wanted = false")
	}

	// Untracked files do not make the tree dirty.
	if err := os.WriteFile(filepath.Join(ws, "scratch.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if dirty, err := r.IsDirty(ctx); err != nil || dirty {
		t.Errorf("IsDirty with untracked file: got = (%v, %v), wanted = (false, nil)", dirty, err)
	}

	f, err := r.Filesystem().Create("src/foo.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if dirty, err := r.IsDirty(ctx); err != nil || !dirty {
		t.Fatalf("IsDirty after edit: got = (%v, %v), wanted = (true, nil)", dirty, err)
	}

	if err := r.AddConfig(ctx, "user.email", "octocat@users.noreply.github.com"); err != nil {
		t.Fatalf("AddConfig: %v", err)
	}
	if err := r.AddConfig(ctx, "user.name", "octocat"); err != nil {
		t.Fatalf("AddConfig: %v", err)
	}
	if err := r.Add(ctx, "src/foo.txt"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Commit(ctx, "Fix formatting"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.Push(ctx, "repo", "feature"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := r.Push(ctx, "repo", "feature"); err != nil {
		t.Errorf("Push again: got = %v, wanted nil", err)
	}

	if dirty, err := r.IsDirty(ctx); err != nil || dirty {
		t.Errorf("IsDirty after commit: got = (%v, %v), wanted = (false, nil)", dirty, err)
	}

	originRepo, err := git.PlainOpen(origin)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	ref, err := originRepo.Reference(plumbing.NewBranchReferenceName("feature"), true)
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	commit, err := originRepo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	if commit.Message != "Fix formatting" {
		t.Errorf("Message: got = %q, wanted = %q", commit.Message, "Fix formatting")
	}
	if commit.Author.Name != "octocat" || commit.Author.Email != "octocat@users.noreply.github.com" {
		t.Errorf("Author: got = %s <%s>", commit.Author.Name, commit.Author.Email)
	}
	if len(commit.ParentHashes) != 1 || commit.ParentHashes[0] != featureHead {
		t.Errorf("Parents: got = %v, wanted = [%s]", commit.ParentHashes, featureHead)
	}

	file, err := commit.File("src/foo.txt")
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	content, err := file.Contents()
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if content != "hello\n" {
		t.Errorf("src/foo.txt: got = %q, wanted = %q", content, "hello\n")
	}
	if _, err := commit.File("scratch.txt"); err == nil {
		t.Error("untracked scratch.txt was committed")
	}
}

func TestCheckoutUnknownBranch(t *testing.T) {
	ctx := context.Background()
	origin, _ := initTestRepo(t)
	ws := cloneWorkspace(t, origin)

	r, err := Open(ctx, ws, staticTokenSource("token"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.AddRemote(ctx, "repo", origin); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if err := r.Fetch(ctx, "repo"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := r.Checkout(ctx, "repo", "nope"); err == nil || !strings.Contains(err.Error(), "repo/nope") {
		t.Errorf("Checkout: got = %v, wanted missing ref error", err)
	}
	if err := r.Checkout(ctx, "repo", ""); err == nil {
		t.Error("Checkout with empty branch: got = nil, wanted error")
	}
}

func TestAddConfig(t *testing.T) {
	ctx := context.Background()
	origin, _ := initTestRepo(t)

	r, err := Open(ctx, origin, staticTokenSource(""))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := r.AddConfig(ctx, "core.autocrlf", "false"); err != nil {
		t.Fatalf("AddConfig: %v", err)
	}
	if err := r.AddConfig(ctx, "branch.feature.remote", "repo"); err != nil {
		t.Fatalf("AddConfig: %v", err)
	}
	if err := r.AddConfig(ctx, "nodot", "x"); err == nil {
		t.Error("AddConfig(nodot): got = nil, wanted error")
	}

	cfg, err := r.Repo().Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if got := cfg.Raw.Section("core").Option("autocrlf"); got != "false" {
		t.Errorf("core.autocrlf: got = %q, wanted = %q", got, "false")
	}
	if got := cfg.Raw.Section("branch").Subsection("feature").Option("remote"); got != "repo" {
		t.Errorf("branch.feature.remote: got = %q, wanted = %q", got, "repo")
	}
}

func TestCommitRequiresMessage(t *testing.T) {
	ctx := context.Background()
	origin, _ := initTestRepo(t)

	r, err := Open(ctx, origin, staticTokenSource(""))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Commit(ctx, ""); err == nil {
		t.Error("Commit(\"\"): got = nil, wanted error")
	}
}
