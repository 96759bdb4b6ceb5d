package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
[project]
root = "site"
rename_map = "renames.yaml"
exclude_dirs = [".git", "vendor"]
directory_index = ["index.html"]
workers = 3

[scan]
ignore_prefixes = ["mailto:", "tel:"]

[routes]
max_depth = 4

[case]
resolve = "FIX"
check = "fold"

[db]
enabled = true
path = "runs.db"

[watch]
debounce = "1s"
`
	path := filepath.Join(t.TempDir(), "relink.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Project.Root != "site" {
		t.Errorf("expected root site, got %s", cfg.Project.Root)
	}
	if cfg.Project.RenameMap != "renames.yaml" {
		t.Errorf("expected rename map renames.yaml, got %s", cfg.Project.RenameMap)
	}
	if cfg.Project.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Project.Workers)
	}
	if cfg.Routes.MaxDepth != 4 {
		t.Errorf("expected max_depth 4, got %d", cfg.Routes.MaxDepth)
	}
	if cfg.Case.Resolve != CaseFix || cfg.Case.Check != CaseFold {
		t.Errorf("unexpected case policies: %+v", cfg.Case)
	}
	if !cfg.DB.Enabled || cfg.DB.Path != "runs.db" {
		t.Errorf("unexpected db config: %+v", cfg.DB)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Routes.Directives) != len(defaultDirectives) {
		t.Errorf("expected default directives, got %d", len(cfg.Routes.Directives))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != 1 {
		t.Fatalf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Routes.MaxDepth != DefaultMaxDepth {
		t.Fatalf("expected max depth %d, got %d", DefaultMaxDepth, cfg.Routes.MaxDepth)
	}
	if cfg.Case.Resolve != CaseFix || cfg.Case.Check != CaseStrict {
		t.Fatalf("expected fix/strict defaults, got %+v", cfg.Case)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Project.Workers < 1 {
		t.Fatalf("expected at least one worker, got %d", cfg.Project.Workers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "BadResolvePolicy",
			content: "[case]\nresolve = \"maybe\"\n",
			want:    "case.resolve",
		},
		{
			name:    "BadCheckPolicy",
			content: "[case]\ncheck = \"fix\"\n",
			want:    "case.check",
		},
		{
			name:    "BadCSSRegex",
			content: "[scan.css]\npatterns = [\"url\\\\((\"]\n",
			want:    "scan.css.patterns[0]",
		},
		{
			name:    "PatternWithoutLinkGroup",
			content: "[scan.css]\npatterns = [\"url\\\\(([^)]*)\\\\)\"]\n",
			want:    "(?P<link>...)",
		},
		{
			name: "DirectiveWithoutTarget",
			content: `
[[routes.directives]]
name = "alias"
pattern = '^Alias\s+(?P<source>\S+)'
`,
			want: "(?P<target>...)",
		},
		{
			name: "DirectiveWithoutSource",
			content: `
[[routes.directives]]
name = "index"
pattern = '^DirectoryIndex\s+(?P<target>\S+)'
`,
			want: "literal source",
		},
		{
			name: "DirectiveBadKind",
			content: `
[[routes.directives]]
name = "alias"
kind = "proxy"
pattern = '^Alias\s+(?P<source>\S+)\s+(?P<target>\S+)'
`,
			want: "kind must be one of",
		},
		{
			name:    "FormatConflict",
			content: "[formats]\nhtml = [\"*.html\"]\njs = [\"*.HTML\"]\n",
			want:    "format conflict",
		},
		{
			name:    "UnsupportedVersion",
			content: "version = 3\n",
			want:    "unsupported config version",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RELINK_CASE_CHECK", " FOLD ")
	t.Setenv("RELINK_PROJECT_WORKERS", "7")
	t.Setenv("RELINK_ROUTES_MAX_DEPTH", "not-a-number")
	t.Setenv("RELINK_DB_ENABLED", "true")
	t.Setenv("RELINK_WATCH_DEBOUNCE", "2s")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Case.Check != CaseFold {
		t.Errorf("expected fold, got %q", cfg.Case.Check)
	}
	if cfg.Project.Workers != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.Project.Workers)
	}
	if cfg.Routes.MaxDepth != DefaultMaxDepth {
		t.Errorf("invalid int override should be ignored, got %d", cfg.Routes.MaxDepth)
	}
	if !cfg.DB.Enabled {
		t.Error("expected db enabled")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected 2s debounce, got %v", cfg.Watch.Debounce)
	}
}
