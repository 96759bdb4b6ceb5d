package routes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relink/internal/core/config"
)

func TestParseDeclarationOrderWins(t *testing.T) {
	text := `RewriteEngine On
RewriteRule ^old-page/?$ /new-page.html [L]
RewriteRule ^old-page$ /newer-page.html [L]
Redirect 301 /legacy.html /pages/current.html
`
	table, warnings := Parse([]Source{{Name: ".htaccess", Text: text}}, config.MustDefaultRules())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rules, got %d", table.Len())
	}

	rule, ok := table.Match("/old-page/")
	if !ok {
		t.Fatal("expected /old-page to match")
	}
	if rule.Target != "/new-page.html" || rule.Order != 0 || rule.Line != 2 {
		t.Fatalf("expected first declared rule, got %+v", rule)
	}

	redirect, ok := table.Match("legacy.html")
	if !ok || redirect.Kind != KindRedirect || redirect.Target != "/pages/current.html" {
		t.Fatalf("unexpected redirect %+v", redirect)
	}
	if redirect.Order != 2 || redirect.Directive != "redirect" {
		t.Fatalf("unexpected order/directive %+v", redirect)
	}
}

func TestParseDirectoryIndex(t *testing.T) {
	table, _ := Parse([]Source{{Name: ".htaccess", Text: "DirectoryIndex home.html\n"}}, config.MustDefaultRules())
	rule, ok := table.Match("/")
	if !ok {
		t.Fatal("expected root route")
	}
	if rule.Target != "home.html" || rule.Kind != KindAlias {
		t.Fatalf("unexpected root rule %+v", rule)
	}
}

func TestParseWarnings(t *testing.T) {
	text := "# comment\n" +
		"Options -Indexes\n" +
		"RewriteCond %{HTTP_HOST} ^www\\.\n" +
		"RewriteRule ^(.*)$ /index.php?q=$1 [L]\n" +
		"RewriteRule ^blog$ /posts/$1 [L]\n" +
		"RewriteRule ^skip$ - [L]\n" +
		"Frobnicate everything\n"
	table, warnings := Parse([]Source{{Name: ".htaccess", Text: text}}, config.MustDefaultRules())
	if table.Len() != 0 {
		t.Fatalf("expected no rules, got %v", table.Rules())
	}
	if len(warnings) != 4 {
		t.Fatalf("expected 4 warnings, got %v", warnings)
	}
	reasons := []string{"unrecognized directive", "back-reference", "no substitution", "unrecognized directive"}
	lines := []int{4, 5, 6, 7}
	for i, w := range warnings {
		if !strings.Contains(w.Reason, reasons[i]) || w.Line != lines[i] {
			t.Errorf("warning %d: got %s, want reason %q at line %d", i, w, reasons[i], lines[i])
		}
	}
}

func TestRuleTargetHelpers(t *testing.T) {
	ext := Rule{Target: "https://example.com/new"}
	if !ext.External() {
		t.Fatal("expected external target")
	}
	local := Rule{Target: "/pages/a.html?x=1#top"}
	if local.External() || local.TargetPath() != "/pages/a.html" {
		t.Fatalf("unexpected helpers for %q", local.Target)
	}
}

func TestNormalizeSource(t *testing.T) {
	cases := map[string]string{
		"":            "/",
		"/":           "/",
		"old-page/":   "/old-page",
		"/a/b/?q=1":   "/a/b",
		`\docs\index`: "/docs/index",
		"  /spaced  ": "/spaced",
	}
	for in, want := range cases {
		if got := NormalizeSource(in); got != want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("AbsentFile", func(t *testing.T) {
		table, warnings := Load(t.TempDir(), config.MustDefaultRules(), nil)
		if table.Len() != 0 || len(warnings) != 0 {
			t.Fatalf("expected empty table without warnings, got %d rules, %v", table.Len(), warnings)
		}
	})

	t.Run("BothFilesInOrder", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, ".htaccess"), []byte("Redirect /a /first.html\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, "htaccess"), []byte("Redirect /a /second.html\nRedirect /b /b.html\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		table, warnings := Load(root, config.MustDefaultRules(), nil)
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings %v", warnings)
		}
		rule, ok := table.Match("/a")
		if !ok || rule.Target != "/first.html" || rule.File != ".htaccess" {
			t.Fatalf("expected .htaccess rule to win, got %+v", rule)
		}
		if _, ok := table.Match("/b"); !ok {
			t.Fatal("expected rule from second file")
		}
	})

	t.Run("UnreadableFile", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, ".htaccess"), 0o755); err != nil {
			t.Fatal(err)
		}
		table, warnings := Load(root, config.MustDefaultRules(), nil)
		if table.Len() != 0 {
			t.Fatalf("expected empty table, got %d rules", table.Len())
		}
		if len(warnings) != 1 || warnings[0].Reason != "unreadable directive file" {
			t.Fatalf("expected one unreadable warning, got %v", warnings)
		}
	})
}
