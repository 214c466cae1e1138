/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chainguard.dev/eoffix/changeset"
	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/fixer"
	"chainguard.dev/eoffix/runcontext"
	"github.com/chainguard-dev/clog"
)

// Kind classifies why a run stopped.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig is a missing token or a malformed input.
	KindConfig
	// KindNotPullRequest is a run triggered by another event. It is not a
	// failure.
	KindNotPullRequest
	// KindDiffParse is a diff document that could not be parsed.
	KindDiffParse
	// KindIO is a changed file that could not be read or written.
	KindIO
	// KindVCS is a failed git or GitHub operation.
	KindVCS
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNotPullRequest:
		return "not-pull-request"
	case KindDiffParse:
		return "diff-parse"
	case KindIO:
		return "io"
	case KindVCS:
		return "vcs"
	default:
		return "unknown"
	}
}

// Error is a run failure tagged with its kind and the stage it happened in.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, looking through wrapped errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}

	var (
		ce *runcontext.ConfigError
		pe *changeset.ParseError
		ie *fixer.IOError
		ge *commitgate.Error
	)
	switch {
	case errors.Is(err, runcontext.ErrNotPullRequest):
		return KindNotPullRequest
	case errors.As(err, &ce):
		return KindConfig
	case errors.As(err, &pe):
		return KindDiffParse
	case errors.As(err, &ie):
		return KindIO
	case errors.As(err, &ge):
		return KindVCS
	default:
		return KindUnknown
	}
}

// Handle reports err and returns the process exit code. It is the only place
// a run's failure is surfaced.
func Handle(ctx context.Context, err error) int {
	return handle(ctx, os.Stdout, err)
}

func handle(ctx context.Context, w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	log := clog.FromContext(ctx)
	kind := KindOf(err)
	if kind == KindNotPullRequest {
		log.Errorf("This action will only work on pull requests, exiting: %v", err)
		return 0
	}

	log.With("kind", kind.String()).Errorf("Run failed: %v", err)
	fmt.Fprintf(w, "::error::%s\n", escapeData(err.Error()))
	return 1
}

var dataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	return dataEscaper.Replace(s)
}
