/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fixer

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

var (
	// ErrSymlink is returned for a path that is, or passes through, a
	// symbolic link.
	ErrSymlink = errors.New("path is a symbolic link")
	// ErrNotRegular is returned for a path that names a directory or other
	// special file.
	ErrNotRegular = errors.New("path is not a regular file")
)

// Tree is the working tree the pipeline reads from and writes to. Paths are
// slash-separated and relative to the repository root. Implementations never
// follow symbolic links: reading or writing through one fails with
// ErrSymlink.
type Tree interface {
	ReadFile(p string) ([]byte, error)
	WriteFile(p string, data []byte) error
}

// NewTree returns a Tree over fs, typically the filesystem of a go-git
// worktree. The returned Tree is safe for concurrent use.
func NewTree(fs billy.Filesystem) Tree {
	return &billyTree{fs: fs}
}

type billyTree struct {
	// billy filesystems are not all safe for concurrent use (memfs is not).
	mu sync.Mutex
	fs billy.Filesystem
}

// clean rejects paths that would leave the worktree root.
func clean(p string) (string, error) {
	c := path.Clean("/" + p)[1:]
	if c == "" || strings.HasPrefix(p, "/") || c != path.Clean(p) {
		return "", fmt.Errorf("path %q escapes worktree", p)
	}
	return c, nil
}

// regular checks every component of c with Lstat and returns the mode of
// the final one. Callers hold t.mu.
func (t *billyTree) regular(c string) (os.FileMode, error) {
	parts := strings.Split(c, "/")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], "/")
		fi, err := t.fs.Lstat(prefix)
		if err != nil {
			return 0, err
		}
		mode := fi.Mode()
		if mode&os.ModeSymlink != 0 {
			return 0, fmt.Errorf("%s: %w", prefix, ErrSymlink)
		}
		if i < len(parts)-1 {
			continue
		}
		if !mode.IsRegular() {
			return 0, fmt.Errorf("%s: %w", prefix, ErrNotRegular)
		}
		return mode, nil
	}
	return 0, fmt.Errorf("path %q escapes worktree", c)
}

func (t *billyTree) ReadFile(p string) ([]byte, error) {
	c, err := clean(p)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.regular(c); err != nil {
		return nil, err
	}
	return util.ReadFile(t.fs, c)
}

func (t *billyTree) WriteFile(p string, data []byte) error {
	c, err := clean(p)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	mode, err := t.regular(c)
	switch {
	case err == nil:
		mode = mode.Perm()
	case errors.Is(err, os.ErrNotExist):
		mode = 0o644
	default:
		return err
	}
	return util.WriteFile(t.fs, c, data, mode)
}
