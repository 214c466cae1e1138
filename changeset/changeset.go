/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changeset derives the list of files changed by a pull request from
// its unified diff.
package changeset

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/sourcegraph/go-diff/diff"
)

const (
	// destPrefix is the prefix git puts on the new side of a file header.
	destPrefix = "b/"
	devNull    = "/dev/null"
	gitHeader  = "diff --git "
)

// ErrNoFiles is wrapped by a ParseError when a non-empty document contains no
// file entries.
var ErrNoFiles = errors.New("no file entries found")

// ParseError reports a document that is not a valid unified diff.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing diff: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Resolve parses a unified diff and returns the repository-relative new path
// of every changed file, in the order the diff lists them.
//
// Deleted files have no new path and are omitted. A path listed more than once
// is reported at its first position.
func Resolve(ctx context.Context, document string) ([]string, error) {
	if strings.TrimSpace(document) == "" {
		return []string{}, nil
	}

	fds, err := diff.ParseMultiFileDiff([]byte(document))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	log := clog.FromContext(ctx)
	seen := make(map[string]struct{}, len(fds))
	paths := make([]string, 0, len(fds))
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	parsedGit := 0
	for _, fd := range fds {
		if len(fd.Extended) > 0 && strings.HasPrefix(fd.Extended[0], gitHeader) {
			parsedGit++
		}

		// Entries without ---/+++ lines, such as mode changes, carry their
		// path only in the extended header.
		if fd.NewName == "" {
			if len(fd.Extended) == 0 {
				return nil, &ParseError{Err: fmt.Errorf("file entry with empty new path (old path %q)", fd.OrigName)}
			}
			p, deleted, err := extendedPath(fd.Extended)
			if err != nil {
				return nil, &ParseError{Err: err}
			}
			if !deleted {
				add(p)
			}
			continue
		}

		name, err := unquote(fd.NewName)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		if name == devNull {
			log.Debugf("Skipping deleted file %s", strings.TrimPrefix(fd.OrigName, "a/"))
			continue
		}

		p := strings.TrimPrefix(name, destPrefix)
		if p == "" {
			return nil, &ParseError{Err: fmt.Errorf("file entry with empty new path (old path %q)", fd.OrigName)}
		}
		add(p)
	}

	// The parser drops header-only entries at the end of the document.
	entries := gitEntries(document)
	if len(entries) > parsedGit {
		for _, e := range entries[parsedGit:] {
			p, deleted, err := extendedPath(e)
			if err != nil {
				return nil, &ParseError{Err: err}
			}
			if !deleted {
				add(p)
			}
		}
	}

	if len(paths) == 0 && len(fds) == 0 && len(entries) == 0 {
		return nil, &ParseError{Err: ErrNoFiles}
	}
	return paths, nil
}

// gitEntries splits document into the lines of each "diff --git" entry.
func gitEntries(document string) [][]string {
	var entries [][]string
	for _, line := range strings.Split(document, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, gitHeader) {
			entries = append(entries, []string{line})
			continue
		}
		if n := len(entries); n > 0 {
			entries[n-1] = append(entries[n-1], line)
		}
	}
	return entries
}

// extendedPath returns the new path of a git entry from its header lines.
// deleted reports an entry that removes the file.
func extendedPath(lines []string) (p string, deleted bool, err error) {
	if len(lines) == 0 || !strings.HasPrefix(lines[0], gitHeader) {
		return "", false, errors.New("file entry without a diff --git header")
	}

	var renameTo string
loop:
	for _, l := range lines[1:] {
		switch {
		case strings.HasPrefix(l, "--- "), strings.HasPrefix(l, "@@"):
			break loop
		case strings.HasPrefix(l, "deleted file mode "):
			deleted = true
		case strings.HasPrefix(l, "rename to "):
			if renameTo, err = unquote(strings.TrimPrefix(l, "rename to ")); err != nil {
				return "", false, err
			}
		}
	}
	if deleted {
		return "", true, nil
	}
	if renameTo != "" {
		return renameTo, false, nil
	}

	p, err = headerNewPath(strings.TrimPrefix(lines[0], gitHeader))
	if err != nil {
		return "", false, err
	}
	return p, false, nil
}

// headerNewPath extracts the destination path from the arguments of a
// "diff --git a/X b/Y" line.
func headerNewPath(args string) (string, error) {
	var b string
	switch {
	case strings.HasSuffix(args, `"`):
		i := strings.LastIndex(args, ` "`)
		if i < 0 {
			return "", fmt.Errorf("malformed diff header %q", args)
		}
		name, err := unquote(args[i+1:])
		if err != nil {
			return "", err
		}
		b = name
	default:
		// Without renames both sides name the same file, which settles
		// paths that contain " b/".
		if n := len(args) - len("a/ b/"); n > 0 && n%2 == 0 {
			l := n / 2
			if strings.HasPrefix(args, "a/") && args[2+l:5+l] == " "+destPrefix && args[2:2+l] == args[5+l:] {
				return args[5+l:], nil
			}
		}
		i := strings.LastIndex(args, " "+destPrefix)
		if i < 0 {
			return "", fmt.Errorf("malformed diff header %q", args)
		}
		b = args[i+1:]
	}

	p := strings.TrimPrefix(b, destPrefix)
	if p == "" || p == b {
		return "", fmt.Errorf("malformed diff header %q", args)
	}
	return p, nil
}

// unquote undoes git's C-style quoting of paths with unusual characters.
func unquote(name string) (string, error) {
	if len(name) < 2 || name[0] != '"' {
		return name, nil
	}
	s, err := strconv.Unquote(name)
	if err != nil {
		return "", fmt.Errorf("unquoting path %s: %w", name, err)
	}
	return s, nil
}
