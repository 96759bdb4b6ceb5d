package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"relink/internal/engine/report"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	brokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// maxListed caps the per-link lines printed to the terminal; the report
// files always carry the full lists.
const maxListed = 20

func renderSummary(s report.Summary) string {
	var b strings.Builder
	st := s.Stats

	b.WriteString(titleStyle.Render(fmt.Sprintf("relink %s: %s", s.Mode, s.Root)))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %s, %d files in %s", s.RunID, st.Files, s.Duration.Round(time.Millisecond))))
	b.WriteString("\n")

	if s.Mode == report.ModeRewrite {
		fmt.Fprintf(&b, "  links: %d scanned, %d internal, %d rewritten in %d files\n",
			st.Scanned, st.Internal, st.Rewritten, st.FilesChanged)
		fmt.Fprintf(&b, "  rewrites: %d exact, %d case-fixed, %d alias, %d relocated\n",
			st.Exact, st.CaseFixed, st.AliasResolved, st.Relocated)
	}
	fmt.Fprintf(&b, "  check: %d checked, %d ignored\n", st.Checked, st.Ignored)

	if st.Broken == 0 && st.Unresolved == 0 && st.FileErrors == 0 {
		b.WriteString(successStyle.Render("  All links resolve"))
		b.WriteString("\n")
	} else {
		b.WriteString("  ")
		b.WriteString(brokenStyle.Render(fmt.Sprintf("%d broken", st.Broken)))
		b.WriteString(", ")
		b.WriteString(unresolvedStyle.Render(fmt.Sprintf("%d unresolved", st.Unresolved)))
		fmt.Fprintf(&b, ", %d file errors\n", st.FileErrors)
	}

	for i, e := range s.Broken {
		if i == maxListed {
			b.WriteString(statusStyle.Render(fmt.Sprintf("    ... %d more broken", len(s.Broken)-maxListed)))
			b.WriteString("\n")
			break
		}
		fmt.Fprintf(&b, "    %s %s:%d %s (%s)\n", brokenStyle.Render("x"), e.File, e.Line, e.Link, e.Reason)
	}
	for i, u := range s.Unresolved {
		if i == maxListed {
			b.WriteString(statusStyle.Render(fmt.Sprintf("    ... %d more unresolved", len(s.Unresolved)-maxListed)))
			b.WriteString("\n")
			break
		}
		fmt.Fprintf(&b, "    %s %s:%d %s (%s)\n", unresolvedStyle.Render("?"), u.File, u.Line, u.Link, u.Reason)
	}
	for _, e := range s.FileErrors {
		fmt.Fprintf(&b, "    %s %s [%s] %s\n", brokenStyle.Render("!"), e.File, e.Code, e.Message)
	}
	for _, w := range s.Warnings {
		b.WriteString(statusStyle.Render(fmt.Sprintf("    route %s:%d %s", w.File, w.Line, w.Reason)))
		b.WriteString("\n")
	}
	return b.String()
}

func printSummary(w io.Writer, s report.Summary) {
	_, _ = io.WriteString(w, renderSummary(s))
}
