/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package classify decides, for each file changed in a pull request, whether
// it is eligible for end-of-file normalization.
//
// Classification happens in two steps so that ignored files are never read:
//
//	c := classify.New(ignores)
//	if v := c.ByPath(p); !v.Eligible() {
//		// skip without opening p
//	}
//	data, _ := os.ReadFile(p)
//	if v := c.ByContent(p, data); !v.Eligible() {
//		// binary: never rewritten
//	}
//
// Binary content is never eligible. Whether the file has an extension only
// changes the reported Reason, so that extension-less binaries (compiled
// tools checked in without a suffix) are called out separately in logs.
package classify
