/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"fmt"
	"io"

	"chainguard.dev/eoffix/classify"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// newMarkdownTable returns the per-file table of the job summary, rendered as
// GitHub flavored markdown so the step summary page displays it as a table.
func newMarkdownTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Status values shown in the summary.
const (
	statusFixed     = "fixed"
	statusUnchanged = "already normalized"
	statusMissing   = "missing from working tree"
)

// fileStatuses returns the status of every changed file, in change-set order.
func fileStatuses(r *Report) [][]string {
	if r.Result == nil {
		return nil
	}

	status := make(map[string][]string, len(r.Changed))
	for _, p := range r.Result.Checked {
		status[p] = []string{statusUnchanged, ""}
	}
	for _, p := range r.Result.CommitSet {
		status[p] = []string{statusFixed, ""}
	}
	for _, p := range r.Result.Missing {
		status[p] = []string{statusMissing, ""}
	}
	for _, v := range r.Result.Skipped {
		detail := ""
		if v.Reason == classify.ReasonIgnored {
			detail = fmt.Sprintf("`%s`", v.Pattern)
		}
		status[v.Path] = []string{"skipped: " + v.Reason.String(), detail}
	}

	rows := make([][]string, 0, len(r.Changed))
	for _, p := range r.Changed {
		s, ok := status[p]
		if !ok {
			continue
		}
		rows = append(rows, append([]string{fmt.Sprintf("`%s`", p)}, s...))
	}
	return rows
}

// WriteSummary renders r as a markdown job summary.
func WriteSummary(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "### End of file fixes for %s/%s#%d\n\n", r.Owner, r.Repo, r.Number); err != nil {
		return err
	}

	rows := fileStatuses(r)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No changed files.")
		return err
	}

	table := newMarkdownTable([]string{"File", "Result", "Pattern"}, w)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("adding summary row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering summary table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\n%d of %d changed files fixed. Commit: %s.\n", len(r.Result.CommitSet), len(r.Changed), r.Outcome)
	return err
}
