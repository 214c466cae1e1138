/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package runner drives a single fix run: it moves the workspace onto the
// pull request branch, resolves the changed files from the pull request
// diff, normalizes their endings and commits the result.
package runner

import (
	"context"
	"errors"

	"chainguard.dev/eoffix/changeset"
	"chainguard.dev/eoffix/classify"
	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/fixer"
	"chainguard.dev/eoffix/runcontext"
	"chainguard.dev/eoffix/vcs"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DiffSource returns the unified diff of a pull request.
type DiffSource interface {
	Diff(ctx context.Context, owner, repo string, number int) (string, error)
}

// Workspace moves the working tree onto a remote branch.
type Workspace interface {
	AddRemote(ctx context.Context, name, url string) error
	Fetch(ctx context.Context, remote string) error
	Checkout(ctx context.Context, remote, branch string) error
}

// Report describes a completed run.
type Report struct {
	Owner  string
	Repo   string
	Number int
	// Changed lists the files named by the diff, in diff order.
	Changed []string
	Result  *fixer.Result
	Outcome commitgate.Outcome
}

// Runner wires the stages of a run together.
type Runner struct {
	RC        *runcontext.RunContext
	Diffs     DiffSource
	Workspace Workspace
	Tree      fixer.Tree
	Gate      *commitgate.Gate
	// Metrics may be nil.
	Metrics *Metrics
}

func tracer() oteltrace.Tracer {
	return otel.Tracer("chainguard.dev/eoffix/runner",
		oteltrace.WithInstrumentationVersion("1.0.0"))
}

// stage runs fn in its own span and tags any error with kind.
func stage(ctx context.Context, name string, kind Kind, fn func(context.Context) error) error {
	ctx, span := tracer().Start(ctx, "eoffix."+name)
	defer span.End()

	err := fn(ctx)
	endStatus(span, err)
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: kind, Op: name, Err: err}
}

// endStatus records the outcome of the work traced by span.
func endStatus(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// Run performs the run. Stages execute strictly in sequence and the first
// failure stops the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report, err := r.run(ctx)
	if err != nil {
		r.Metrics.ObserveFailure(KindOf(err))
	}
	return report, err
}

func (r *Runner) run(ctx context.Context) (_ *Report, err error) {
	rc := r.RC
	ctx, span := tracer().Start(ctx, "eoffix.run", oteltrace.WithAttributes(
		attribute.String("repository", rc.Repository),
		attribute.Int("pull_request", rc.Number),
		attribute.String("branch", rc.Branch),
	))
	defer func() {
		endStatus(span, err)
		span.End()
	}()

	log := clog.FromContext(ctx)
	report := &Report{Owner: rc.Owner, Repo: rc.Repo, Number: rc.Number}
	remote := r.Gate.Remote
	if remote == "" {
		remote = commitgate.DefaultRemote
	}

	if err := stage(ctx, "checkout", KindVCS, func(ctx context.Context) error {
		if err := r.Workspace.AddRemote(ctx, remote, vcs.RemoteURL(rc.ServerURL, rc.Repository)); err != nil {
			return err
		}
		if err := r.Workspace.Fetch(ctx, remote); err != nil {
			return err
		}
		return r.Workspace.Checkout(ctx, remote, rc.Branch)
	}); err != nil {
		return nil, err
	}

	var document string
	if err := stage(ctx, "fetch-diff", KindVCS, func(ctx context.Context) (err error) {
		document, err = r.Diffs.Diff(ctx, rc.Owner, rc.Repo, rc.Number)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, "resolve", KindDiffParse, func(ctx context.Context) (err error) {
		report.Changed, err = changeset.Resolve(ctx, document)
		return err
	}); err != nil {
		return nil, err
	}
	log.Infof("Changed files paths: %q", report.Changed)

	toCheck, _ := rc.Ignores.Filter(report.Changed)
	log.Infof("Files to check: %q", toCheck)

	if err := stage(ctx, "fix", KindIO, func(ctx context.Context) (err error) {
		p := &fixer.Pipeline{
			Tree:          r.Tree,
			Classifier:    classify.New(rc.Ignores),
			Concurrency:   rc.Concurrency,
			FailOnMissing: rc.FailOnMissing,
		}
		report.Result, err = p.Run(ctx, report.Changed)
		return err
	}); err != nil {
		return nil, err
	}
	r.Metrics.ObserveResult(report.Result)
	log.Infof("Files to commit: %q", report.Result.CommitSet)

	if err := stage(ctx, "commit", KindVCS, func(ctx context.Context) (err error) {
		report.Outcome, err = r.Gate.MaybeCommit(ctx, report.Result.CommitSet, rc.CommitMessage, rc.Branch)
		return err
	}); err != nil {
		return nil, err
	}
	r.Metrics.ObserveOutcome(report.Outcome)

	span.SetAttributes(attribute.Int("files_fixed", len(report.Result.CommitSet)))
	return report, nil
}
