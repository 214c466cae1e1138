/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"bytes"
	"strings"
	"testing"

	"chainguard.dev/eoffix/classify"
	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/fixer"
	"github.com/google/go-cmp/cmp"
)

func testReport() *Report {
	return &Report{
		Owner:   "octo",
		Repo:    "hello",
		Number:  42,
		Changed: []string{"src/foo.txt", "notes", "tool.exe", "README.md", "gone.txt"},
		Result: &fixer.Result{
			Checked: []string{"src/foo.txt", "notes", "README.md", "gone.txt"},
			Skipped: []classify.Verdict{
				{Path: "notes", Reason: classify.ReasonBinaryNoExtension},
				{Path: "tool.exe", Reason: classify.ReasonIgnored, Pattern: `.*\.exe$`},
			},
			Missing:   []string{"gone.txt"},
			CommitSet: []string{"src/foo.txt"},
		},
		Outcome: commitgate.Committed,
	}
}

func TestFileStatuses(t *testing.T) {
	want := [][]string{
		{"`src/foo.txt`", "fixed", ""},
		{"`notes`", "skipped: binary-no-extension", ""},
		{"`tool.exe`", "skipped: ignored-by-pattern", "`.*\\.exe$`"},
		{"`README.md`", "already normalized", ""},
		{"`gone.txt`", "missing from working tree", ""},
	}
	if diff := cmp.Diff(want, fileStatuses(testReport())); diff != "" {
		t.Errorf("fileStatuses (-want +got):\n%s", diff)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testReport()); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"### End of file fixes for octo/hello#42\n",
		"File",
		"`src/foo.txt`",
		"skipped: binary-no-extension",
		"1 of 5 changed files fixed. Commit: committed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary is missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var tableRows int
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			tableRows++
		}
	}
	// Header, separator and one row per changed file.
	if tableRows != 7 {
		t.Errorf("table lines: got = %d, wanted = 7:\n%s", tableRows, out)
	}
}

func TestWriteSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{Owner: "octo", Repo: "hello", Number: 1, Result: &fixer.Result{}}
	if err := WriteSummary(&buf, r); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if got, want := buf.String(), "### End of file fixes for octo/hello#1\n\nNo changed files.\n"; got != want {
		t.Errorf("summary: got = %q, wanted = %q", got, want)
	}
}
