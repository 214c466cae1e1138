/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ignore decides whether a changed file is excluded from fixing by a
// configured list of regular expressions.
//
// A pattern only excludes a path when its match covers the whole path. A
// pattern that matches a substring (for example `foo` against `src/foo.go`)
// does not exclude anything.
package ignore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Builtin lists the patterns that are always ignored, regardless of what the
// caller configures. Executables are never rewritten.
var Builtin = []string{
	`.*\.exe`,
}

// Pattern is a compiled ignore expression.
type Pattern struct {
	expr string
	re   *regexp.Regexp
}

// Compile compiles expr into a Pattern.
func Compile(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compiling ignore pattern %q: %w", expr, err)
	}
	return Pattern{expr: expr, re: re}, nil
}

// MustCompile is like Compile but panics on an invalid expression.
func MustCompile(expr string) Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p Pattern) String() string {
	return p.expr
}

// MatchesWhole reports whether the first match of the pattern in path spans
// the entire path.
func (p Pattern) MatchesWhole(path string) bool {
	if p.re == nil {
		return false
	}
	loc := p.re.FindStringIndex(path)
	return loc != nil && loc[0] == 0 && loc[1] == len(path)
}

// List is an ordered set of ignore patterns.
type List []Pattern

// ParseList decodes a JSON array of regular expressions. Blank input yields
// an empty list.
func ParseList(text string) (List, error) {
	if strings.TrimSpace(text) == "" {
		return List{}, nil
	}

	var exprs []string
	if err := json.Unmarshal([]byte(text), &exprs); err != nil {
		return nil, fmt.Errorf("decoding ignore patterns: %w", err)
	}
	return CompileAll(exprs)
}

// CompileAll compiles every expression, failing on the first invalid one.
func CompileAll(exprs []string) (List, error) {
	l := make(List, 0, len(exprs))
	for _, expr := range exprs {
		p, err := Compile(expr)
		if err != nil {
			return nil, err
		}
		l = append(l, p)
	}
	return l, nil
}

// WithBuiltins returns a copy of l with the Builtin patterns appended. A
// builtin already present in l is not repeated.
func WithBuiltins(l List) List {
	out := make(List, len(l), len(l)+len(Builtin))
	copy(out, l)

	seen := make(map[string]struct{}, len(l))
	for _, p := range l {
		seen[p.expr] = struct{}{}
	}
	for _, expr := range Builtin {
		if _, ok := seen[expr]; ok {
			continue
		}
		out = append(out, MustCompile(expr))
	}
	return out
}

// Match returns the first pattern in l that matches the whole path.
func (l List) Match(path string) (Pattern, bool) {
	for _, p := range l {
		if p.MatchesWhole(path) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Filter splits paths into those to keep and those ignored by l. Both slices
// preserve the input order.
func (l List) Filter(paths []string) (keep, ignored []string) {
	keep = make([]string, 0, len(paths))
	for _, path := range paths {
		if _, ok := l.Match(path); ok {
			ignored = append(ignored, path)
			continue
		}
		keep = append(keep, path)
	}
	return keep, ignored
}

// Strings returns the source expressions of l.
func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, p := range l {
		out = append(out, p.expr)
	}
	return out
}
