/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package commitgate decides whether a fix run produced changes worth
// committing and, if so, commits and pushes them as a single unit.
package commitgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
)

// DefaultMessage is the commit message used when none is configured.
const DefaultMessage = "Fix formatting"

// DefaultRemote is the name of the remote pushes go to.
const DefaultRemote = "repo"

const noreplyDomain = "users.noreply.github.com"

// VCS is the subset of version control operations the gate needs.
type VCS interface {
	IsDirty(ctx context.Context) (bool, error)
	AddConfig(ctx context.Context, key, value string) error
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, branch string) error
}

// Identity is the author recorded on the fix commit.
type Identity struct {
	Name  string
	Email string
}

// ActorIdentity returns the identity of the GitHub user that triggered the
// run, using their noreply address.
func ActorIdentity(actor string) Identity {
	return Identity{
		Name:  actor,
		Email: fmt.Sprintf("%s@%s", actor, noreplyDomain),
	}
}

// BotIdentity returns an identity for a configured author. An identity
// without an "@" is treated as a user name and given a noreply address.
func BotIdentity(identity string) Identity {
	identity = strings.TrimSpace(identity)
	email := identity
	if !strings.Contains(email, "@") {
		email = fmt.Sprintf("%s@%s", identity, noreplyDomain)
	}
	return Identity{Name: identity, Email: email}
}

// Outcome reports what the gate did.
type Outcome int

const (
	// NoOp means nothing was committed.
	NoOp Outcome = iota
	// Committed means a commit was created and pushed.
	Committed
)

func (o Outcome) String() string {
	switch o {
	case NoOp:
		return "no-op"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Error reports the version control step that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Gate commits and pushes the files a fix run rewrote.
type Gate struct {
	VCS      VCS
	Identity Identity
	// Remote defaults to DefaultRemote.
	Remote string
}

// MaybeCommit commits commitSet with message and pushes it to branch when the
// working tree has modifications. It configures the author, stages, commits
// and pushes in that order and stops at the first failure.
func (g *Gate) MaybeCommit(ctx context.Context, commitSet []string, message, branch string) (Outcome, error) {
	log := clog.FromContext(ctx)

	dirty, err := g.VCS.IsDirty(ctx)
	if err != nil {
		return NoOp, &Error{Op: "checking worktree", Err: err}
	}
	if !dirty {
		log.Info("No changes to make")
		return NoOp, nil
	}
	if len(commitSet) == 0 {
		log.Warn("Working tree has modifications but no files were fixed, not committing")
		return NoOp, nil
	}

	if branch == "" {
		return NoOp, &Error{Op: "pushing", Err: errors.New("branch name cannot be empty")}
	}
	if message == "" {
		message = DefaultMessage
	}
	remote := g.Remote
	if remote == "" {
		remote = DefaultRemote
	}

	steps := []struct {
		op string
		fn func() error
	}{
		{"setting user.email", func() error { return g.VCS.AddConfig(ctx, "user.email", g.Identity.Email) }},
		{"setting user.name", func() error { return g.VCS.AddConfig(ctx, "user.name", g.Identity.Name) }},
		{"staging", func() error { return g.VCS.Add(ctx, commitSet...) }},
		{"committing", func() error { return g.VCS.Commit(ctx, message) }},
		{"pushing", func() error { return g.VCS.Push(ctx, remote, branch) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return NoOp, &Error{Op: s.op, Err: err}
		}
	}

	log.With("files", len(commitSet), "branch", branch).Info("Pushed formatting fixes")
	return Committed, nil
}
