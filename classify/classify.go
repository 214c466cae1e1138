/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package classify

import (
	"fmt"
	"path"
	"regexp"

	"chainguard.dev/eoffix/ignore"
)

// Reason explains why a file is skipped.
type Reason int

const (
	// ReasonNone means the file is eligible.
	ReasonNone Reason = iota
	// ReasonIgnored means an ignore pattern matched the whole path.
	ReasonIgnored
	// ReasonBinaryNoExtension means the content is binary and the name has
	// no extension.
	ReasonBinaryNoExtension
	// ReasonBinary means the content is binary.
	ReasonBinary
	// ReasonSymlink means the path is, or passes through, a symbolic link.
	// Links are never followed.
	ReasonSymlink
	// ReasonNotRegular means the path names a directory or other special
	// file, such as a submodule.
	ReasonNotRegular
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "eligible"
	case ReasonIgnored:
		return "ignored-by-pattern"
	case ReasonBinaryNoExtension:
		return "binary-no-extension"
	case ReasonBinary:
		return "binary"
	case ReasonSymlink:
		return "symlink"
	case ReasonNotRegular:
		return "not-regular-file"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Verdict is the classification of one changed file.
type Verdict struct {
	Path   string
	Reason Reason
	// Pattern is the ignore expression that matched, for ReasonIgnored.
	Pattern string
}

// Eligible reports whether the file should be normalized.
func (v Verdict) Eligible() bool {
	return v.Reason == ReasonNone
}

func (v Verdict) String() string {
	if v.Reason == ReasonIgnored {
		return fmt.Sprintf("%s: %s (%s)", v.Path, v.Reason, v.Pattern)
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Reason)
}

// noExtension matches base names without an extension, including dotfiles
// such as .gitignore.
var noExtension = regexp.MustCompile(`^\.?[^.]*$`)

// HasExtension reports whether the base name of p carries an extension.
func HasExtension(p string) bool {
	return !noExtension.MatchString(path.Base(p))
}

// Classifier decides which changed files are eligible for normalization.
type Classifier struct {
	Ignores ignore.List
	Sniffer Sniffer
}

// New returns a Classifier using the given ignore patterns and the default
// content sniffer.
func New(ignores ignore.List) *Classifier {
	return &Classifier{Ignores: ignores, Sniffer: DefaultSniffer}
}

// ByPath classifies p by name alone. It must be consulted before the file is
// read: ignored files are never opened.
func (c *Classifier) ByPath(p string) Verdict {
	if pat, ok := c.Ignores.Match(p); ok {
		return Verdict{Path: p, Reason: ReasonIgnored, Pattern: pat.String()}
	}
	return Verdict{Path: p}
}

// ByContent classifies p from its raw bytes. Binary content is never
// eligible; the extension only selects the reported reason.
func (c *Classifier) ByContent(p string, data []byte) Verdict {
	sniffer := c.Sniffer
	if sniffer == nil {
		sniffer = DefaultSniffer
	}
	if !sniffer.IsBinary(data) {
		return Verdict{Path: p}
	}
	if HasExtension(p) {
		return Verdict{Path: p, Reason: ReasonBinary}
	}
	return Verdict{Path: p, Reason: ReasonBinaryNoExtension}
}
