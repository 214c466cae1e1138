/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package fixer runs end-of-file normalization over the files changed in a
// pull request and reports which files it rewrote.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"chainguard.dev/eoffix/classify"
	"chainguard.dev/eoffix/normalize"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// IOError reports a file that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one pipeline run. Every slice is in change-set
// order.
type Result struct {
	// Checked lists the files that passed the ignore patterns.
	Checked []string
	// Skipped lists the files excluded by pattern or content.
	Skipped []classify.Verdict
	// Missing lists files named by the diff that are absent from the tree.
	Missing []string
	// CommitSet lists the files rewritten on disk.
	CommitSet []string
}

// Pipeline classifies and normalizes a change set against a working tree.
type Pipeline struct {
	Tree       Tree
	Classifier *classify.Classifier
	// Concurrency bounds the number of files processed at once. Zero means
	// runtime.NumCPU().
	Concurrency int
	// FailOnMissing turns a changed file that is absent from the tree into an
	// IOError instead of a warning.
	FailOnMissing bool
}

type outcome struct {
	verdict classify.Verdict
	missing bool
	fixed   bool
}

// Run processes paths and returns the files it rewrote. A file is part of the
// CommitSet only once its normalized content has been written.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	log := clog.FromContext(ctx)
	res := &Result{}

	// Ignored files are settled here, before anything is read.
	byPath := make([]classify.Verdict, len(paths))
	for i, path := range paths {
		byPath[i] = p.Classifier.ByPath(path)
		if !byPath[i].Eligible() {
			log.Infof("Skipping %s", byPath[i])
			continue
		}
		res.Checked = append(res.Checked, path)
	}

	outcomes := make([]outcome, len(res.Checked))

	limit := p.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range res.Checked {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := p.fix(gctx, path)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := 0
	for i := range paths {
		if !byPath[i].Eligible() {
			res.Skipped = append(res.Skipped, byPath[i])
			continue
		}
		o := outcomes[next]
		path := res.Checked[next]
		next++

		switch {
		case o.missing:
			res.Missing = append(res.Missing, path)
		case !o.verdict.Eligible():
			res.Skipped = append(res.Skipped, o.verdict)
		case o.fixed:
			res.CommitSet = append(res.CommitSet, path)
		}
	}
	return res, nil
}

func (p *Pipeline) fix(ctx context.Context, path string) (outcome, error) {
	log := clog.FromContext(ctx)

	data, err := p.Tree.ReadFile(path)
	if err != nil {
		var reason classify.Reason
		switch {
		case errors.Is(err, ErrSymlink):
			reason = classify.ReasonSymlink
		case errors.Is(err, ErrNotRegular):
			reason = classify.ReasonNotRegular
		}
		if reason != classify.ReasonNone {
			v := classify.Verdict{Path: path, Reason: reason}
			log.Infof("Skipping %s", v)
			return outcome{verdict: v}, nil
		}
		if errors.Is(err, fs.ErrNotExist) && !p.FailOnMissing {
			log.Warnf("Changed file %s does not exist in the working tree, skipping", path)
			return outcome{missing: true}, nil
		}
		return outcome{}, &IOError{Op: "reading", Path: path, Err: err}
	}

	v := p.Classifier.ByContent(path, data)
	if !v.Eligible() {
		log.Infof("Skipping %s", v)
		return outcome{verdict: v}, nil
	}

	fixed, changed := normalize.Changed(data)
	if !changed {
		log.Debugf("%s already normalized", path)
		return outcome{verdict: v}, nil
	}

	if err := p.Tree.WriteFile(path, fixed); err != nil {
		return outcome{}, &IOError{Op: "writing", Path: path, Err: err}
	}
	log.Infof("Fixed end of file in %s", path)
	return outcome{verdict: v, fixed: true}, nil
}
