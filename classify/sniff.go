/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package classify

import (
	"bytes"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Sniffer decides whether raw file content is binary. Implementations must
// not panic and have no error path: undecidable content is reported as
// binary.
type Sniffer interface {
	IsBinary(data []byte) bool
}

// SnifferFunc adapts a function to the Sniffer interface.
type SnifferFunc func([]byte) bool

// IsBinary implements Sniffer.
func (f SnifferFunc) IsBinary(data []byte) bool { return f(data) }

// DefaultSniffer treats content as text when mimetype places it under
// text/plain, it holds no NUL bytes and it is valid UTF-8. Everything else is
// binary.
var DefaultSniffer Sniffer = SnifferFunc(isBinary)

func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	// Null bytes never appear in text we are willing to rewrite.
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if !utf8.Valid(data) {
		return true
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return false
		}
	}
	return true
}
