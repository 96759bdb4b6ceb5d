package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relink/internal/engine/checker"
	engine "relink/internal/engine/report"
	"relink/internal/engine/resolver"
	"relink/internal/engine/scanner"
)

func sampleSummary() engine.Summary {
	return engine.Summary{
		RunID:     "run-1",
		Mode:      engine.ModeRewrite,
		Root:      "/site",
		StartedAt: time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Stats: engine.LinkStats{
			Files:      3,
			Rewritten:  2,
			Unresolved: 1,
			Broken:     1,
			ByReason:   map[string]int{"exact-match": 2, "missing-target": 1},
		},
		Unresolved: []engine.UnresolvedLink{
			{File: "index.html", Line: 4, Link: "gone.png", Reason: resolver.ReasonMissingTarget},
		},
		Broken: []checker.Entry{
			{File: "index.html", Line: 4, Link: "gone`.png", Class: scanner.ClassRelative, Status: checker.StatusBroken, Reason: checker.ReasonMissingTarget},
		},
	}
}

func TestRenderSummaryMarkdown(t *testing.T) {
	out := RenderSummaryMarkdown(sampleSummary())

	for _, want := range []string{
		"## Link report (rewrite)",
		"| Rewritten | 2 |",
		"| exact-match | 2 |",
		"- `index.html:4` `gone'.png` (missing-target)",
		"### Unresolved links",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "### File errors") {
		t.Fatalf("unexpected empty section:\n%s", out)
	}
}

func TestRenderBrokenTSV(t *testing.T) {
	out, err := RenderBrokenTSV(sampleSummary())
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %d: %q", len(lines), lines)
	}
	if lines[1] != "unresolved\tindex.html\t4\tgone.png\tmissing-target" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestRenderSummaryJSON(t *testing.T) {
	out, err := RenderSummaryJSON(sampleSummary())
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	body := string(out)
	if !strings.Contains(body, `"run_id": "run-1"`) || !strings.Contains(body, `"class": "internal-relative"`) {
		t.Fatalf("unexpected json: %s", body)
	}
}

func TestWriteMarkdown(t *testing.T) {
	dir := t.TempDir()

	t.Run("CreatesFileWithMarkers", func(t *testing.T) {
		path := filepath.Join(dir, "reports", "links.md")
		if err := WriteMarkdown(path, "summary", "first\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		want := "<!-- relink:summary:start -->\nfirst\n<!-- relink:summary:end -->\n"
		if string(data) != want {
			t.Fatalf("expected %q, got %q", want, string(data))
		}
	})

	t.Run("ReplacesBetweenMarkers", func(t *testing.T) {
		path := filepath.Join(dir, "README.md")
		original := "# Site\r\n<!-- relink:summary:start -->\r\nold\r\n<!-- relink:summary:end -->\r\nfooter\r\n"
		if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := WriteMarkdown(path, "summary", "new"); err != nil {
			t.Fatalf("write: %v", err)
		}
		data, _ := os.ReadFile(path)
		want := "# Site\r\n<!-- relink:summary:start -->\r\nnew\r\n<!-- relink:summary:end -->\r\nfooter\r\n"
		if string(data) != want {
			t.Fatalf("expected %q, got %q", want, string(data))
		}
	})

	t.Run("RejectsMissingMarkers", func(t *testing.T) {
		path := filepath.Join(dir, "plain.md")
		if err := os.WriteFile(path, []byte("# Plain\n"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := WriteMarkdown(path, "summary", "new"); err == nil {
			t.Fatal("expected marker error")
		}
	})
}
