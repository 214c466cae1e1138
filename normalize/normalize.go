/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package normalize rewrites the end of a text file so that it carries no
// trailing whitespace and exactly one terminating newline.
package normalize

import "bytes"

// trailing is the set of bytes removed from the end of a file.
const trailing = " \t\n"

// EOF returns content with every trailing space, tab and newline removed and
// a single newline appended. Content that is empty or entirely whitespace
// normalizes to empty.
//
// EOF is idempotent and never modifies its argument.
func EOF(content []byte) []byte {
	trimmed := bytes.TrimRight(content, trailing)
	if len(trimmed) == 0 {
		return []byte{}
	}

	out := make([]byte, len(trimmed)+1)
	copy(out, trimmed)
	out[len(trimmed)] = '\n'
	return out
}

// EOFString is EOF for strings.
func EOFString(content string) string {
	return string(EOF([]byte(content)))
}

// Changed normalizes original and reports whether the result differs from it
// byte for byte.
func Changed(original []byte) ([]byte, bool) {
	fixed := EOF(original)
	return fixed, !bytes.Equal(original, fixed)
}
