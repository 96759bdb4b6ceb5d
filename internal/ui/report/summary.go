// Package report renders run summaries and history trends for files and
// terminals outside the engine.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	engine "relink/internal/engine/report"
)

func RenderSummaryJSON(summary engine.Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// RenderBrokenTSV lists unresolved and broken links, one per row.
func RenderBrokenTSV(summary engine.Summary) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Type\tFile\tLine\tLink\tReason\n")
	for _, u := range summary.Unresolved {
		buf.WriteString(fmt.Sprintf("unresolved\t%s\t%d\t%s\t%s\n", u.File, u.Line, u.Link, u.Reason))
	}
	for _, b := range summary.Broken {
		buf.WriteString(fmt.Sprintf("broken\t%s\t%d\t%s\t%s\n", b.File, b.Line, b.Link, b.Reason))
	}
	for _, e := range summary.FileErrors {
		buf.WriteString(fmt.Sprintf("file_error\t%s\t0\t\t%s\n", e.File, e.Code))
	}

	return []byte(buf.String()), nil
}

// RenderSummaryMarkdown renders the summary as a markdown section suitable
// for injecting between markers.
func RenderSummaryMarkdown(summary engine.Summary) string {
	var b strings.Builder
	s := summary.Stats

	fmt.Fprintf(&b, "## Link report (%s)\n\n", summary.Mode)
	fmt.Fprintf(&b, "Run `%s` started %s, took %s.\n\n",
		summary.RunID, summary.StartedAt.UTC().Format("2006-01-02 15:04:05"), summary.Duration.Round(time.Millisecond))

	b.WriteString("| Metric | Count |\n|---|---|\n")
	rows := []struct {
		name  string
		value int
	}{
		{"Files", s.Files},
		{"Files changed", s.FilesChanged},
		{"File errors", s.FileErrors},
		{"Links scanned", s.Scanned},
		{"Internal links", s.Internal},
		{"Rewritten", s.Rewritten},
		{"Unresolved", s.Unresolved},
		{"Checked", s.Checked},
		{"Broken", s.Broken},
		{"Ignored", s.Ignored},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.value)
	}

	if len(s.ByReason) > 0 {
		b.WriteString("\n| Reason | Count |\n|---|---|\n")
		reasons := make([]string, 0, len(s.ByReason))
		for reason := range s.ByReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "| %s | %d |\n", reason, s.ByReason[reason])
		}
	}

	if len(summary.Broken) > 0 {
		b.WriteString("\n### Broken links\n\n")
		for _, e := range summary.Broken {
			fmt.Fprintf(&b, "- `%s:%d` `%s` (%s)\n", e.File, e.Line, escapeTicks(e.Link), e.Reason)
		}
	}
	if len(summary.Unresolved) > 0 {
		b.WriteString("\n### Unresolved links\n\n")
		for _, u := range summary.Unresolved {
			fmt.Fprintf(&b, "- `%s:%d` `%s` (%s)\n", u.File, u.Line, escapeTicks(u.Link), u.Reason)
		}
	}
	if len(summary.FileErrors) > 0 {
		b.WriteString("\n### File errors\n\n")
		for _, e := range summary.FileErrors {
			fmt.Fprintf(&b, "- `%s` %s %s: %s\n", e.File, e.Phase, e.Code, e.Message)
		}
	}
	if len(summary.Warnings) > 0 {
		b.WriteString("\n### Route warnings\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- `%s:%d` %s\n", w.File, w.Line, w.Reason)
		}
	}
	return b.String()
}

func escapeTicks(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
