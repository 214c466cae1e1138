/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command eoffix normalizes the end of every text file changed by a pull
// request and pushes the result back to the pull request branch. It runs as a
// GitHub Actions step.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/diffsource"
	"chainguard.dev/eoffix/fixer"
	"chainguard.dev/eoffix/runcontext"
	"chainguard.dev/eoffix/runner"
	"chainguard.dev/eoffix/vcs"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

func withLogger(ctx context.Context, level slog.Level) context.Context {
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return clog.WithLogger(ctx, logger)
}

func run(ctx context.Context) int {
	ctx = withLogger(ctx, slog.LevelInfo)

	rc, err := runcontext.Load(ctx, envconfig.OsLookuper(), os.ReadFile)
	if err != nil {
		return runner.Handle(ctx, err)
	}
	ctx = withLogger(ctx, rc.Level())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: rc.Token})

	repo, err := vcs.Open(ctx, rc.Workspace, ts)
	if err != nil {
		return runner.Handle(ctx, &runner.Error{Kind: runner.KindVCS, Op: "opening workspace", Err: err})
	}
	diffs, err := diffsource.New(ctx, ts, rc.APIURL)
	if err != nil {
		return runner.Handle(ctx, &runner.Error{Kind: runner.KindConfig, Op: "creating GitHub client", Err: err})
	}

	metrics := runner.NewMetrics()
	r := &runner.Runner{
		RC:        rc,
		Diffs:     diffs,
		Workspace: repo,
		Tree:      fixer.NewTree(repo.Filesystem()),
		Gate:      &commitgate.Gate{VCS: repo, Identity: rc.Identity},
		Metrics:   metrics,
	}

	report, err := r.Run(ctx)
	if err == nil && rc.StepSummary != "" {
		if serr := appendSummary(rc.StepSummary, report); serr != nil {
			clog.WarnContextf(ctx, "Writing job summary: %v", serr)
		}
	}
	if perr := metrics.Push(ctx, rc.PushgatewayURL, rc.Repository); perr != nil {
		clog.WarnContextf(ctx, "%v", perr)
	}
	return runner.Handle(ctx, err)
}

func appendSummary(path string, report *runner.Report) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if err := runner.WriteSummary(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
