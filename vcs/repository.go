/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

// Repository runs the git operations of a fix run against a checked-out
// workspace.
type Repository struct {
	tokenSource oauth2.TokenSource
	repo        *git.Repository
	worktree    *git.Worktree
}

// Open opens the repository containing dir. The token source authenticates
// fetches and pushes.
func Open(_ context.Context, dir string, tokenSource oauth2.TokenSource) (*Repository, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	return &Repository{
		tokenSource: tokenSource,
		repo:        repo,
		worktree:    worktree,
	}, nil
}

// RemoteURL returns the clone URL of repository ("owner/name") on serverURL.
func RemoteURL(serverURL, repository string) string {
	return fmt.Sprintf("%s/%s.git", strings.TrimSuffix(serverURL, "/"), repository)
}

// Filesystem returns the worktree filesystem.
func (r *Repository) Filesystem() billy.Filesystem {
	return r.worktree.Filesystem
}

// Repo returns the underlying git repository.
func (r *Repository) Repo() *git.Repository {
	return r.repo
}

// AddRemote registers a remote. Registering a name that already points at
// url is a no-op.
func (r *Repository) AddRemote(ctx context.Context, name, url string) error {
	existing, err := r.repo.Remote(name)
	switch {
	case err == nil:
		if urls := existing.Config().URLs; len(urls) > 0 && urls[0] == url {
			clog.FromContext(ctx).Debugf("Remote %s already registered", name)
			return nil
		}
		return fmt.Errorf("remote %s already exists with a different url", name)
	case !errors.Is(err, git.ErrRemoteNotFound):
		return fmt.Errorf("looking up remote %s: %w", name, err)
	}

	if _, err := r.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: name,
		URLs: []string{url},
	}); err != nil {
		return fmt.Errorf("creating remote %s: %w", name, err)
	}
	return nil
}

// Fetch fetches every branch of remote into refs/remotes/<remote>/.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	auth, err := r.authForRemote()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	clog.FromContext(ctx).Infof("Fetching %s", remote)
	if err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))},
		Auth:       auth,
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching %s: %w", remote, err)
	}
	return nil
}

// Checkout points the local branch at the fetched head of remote/branch and
// checks it out, discarding local modifications.
func (r *Repository) Checkout(ctx context.Context, remote, branch string) error {
	if branch == "" {
		return errors.New("branch name cannot be empty")
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return fmt.Errorf("getting remote ref %s/%s: %w", remote, branch, err)
	}

	refName := plumbing.NewBranchReferenceName(branch)
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, remoteRef.Hash())); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}

	clog.FromContext(ctx).Infof("Checking out %s at %s", branch, remoteRef.Hash())
	if err := r.worktree.Checkout(&git.CheckoutOptions{Branch: refName, Force: true}); err != nil {
		return fmt.Errorf("checking out branch %s: %w", branch, err)
	}
	return nil
}

// AddConfig sets a repository-local configuration value. Keys take the form
// section.option or section.subsection.option.
func (r *Repository) AddConfig(_ context.Context, key, value string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch key {
	case "user.name":
		cfg.User.Name = value
	case "user.email":
		cfg.User.Email = value
	default:
		parts := strings.Split(key, ".")
		switch len(parts) {
		case 2:
			cfg.Raw.Section(parts[0]).SetOption(parts[1], value)
		case 3:
			cfg.Raw.Section(parts[0]).Subsection(parts[1]).SetOption(parts[2], value)
		default:
			return fmt.Errorf("invalid config key %q", key)
		}
	}

	if err := r.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("writing config %s: %w", key, err)
	}
	return nil
}

// Add stages paths.
func (r *Repository) Add(_ context.Context, paths ...string) error {
	for _, p := range paths {
		if _, err := r.worktree.Add(p); err != nil {
			return fmt.Errorf("adding %s: %w", p, err)
		}
	}
	return nil
}

// Commit records the staged changes, authored by the configured user.
func (r *Repository) Commit(ctx context.Context, message string) error {
	if message == "" {
		return errors.New("commit message cannot be empty")
	}

	opts := &git.CommitOptions{}
	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if cfg.User.Name != "" && cfg.User.Email != "" {
		opts.Author = &object.Signature{
			Name:  cfg.User.Name,
			Email: cfg.User.Email,
			When:  time.Now(),
		}
	}

	hash, err := r.worktree.Commit(message, opts)
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	clog.FromContext(ctx).Infof("Created commit %s", hash)
	return nil
}

// Push pushes the local branch to the same branch on remote. Pushes are never
// forced.
func (r *Repository) Push(ctx context.Context, remote, branch string) error {
	log := clog.FromContext(ctx)

	auth, err := r.authForRemote()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
	log.Infof("Pushing %s to %s", refSpec, remote)

	if err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Infof("Branch already up to date")
			return nil
		}
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}

// IsDirty reports whether any tracked file differs from the index, the same
// question `git diff --quiet` answers. Untracked files do not count.
func (r *Repository) IsDirty(_ context.Context) (bool, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	for _, s := range status {
		if s.Worktree != git.Unmodified && s.Worktree != git.Untracked {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) authForRemote() (*githttp.BasicAuth, error) {
	token, err := r.tokenSource.Token()
	if err != nil {
		return nil, err
	}

	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: token.AccessToken,
	}, nil
}
