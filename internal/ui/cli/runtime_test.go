package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relink/internal/core/config"
	"relink/internal/data/history"
	"relink/internal/engine/checker"
	"relink/internal/engine/report"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-check", "-strict", "-report-json", "out.json", "site"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.check || !opts.strict || opts.reportJSON != "out.json" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.configPath != defaultConfigPath {
		t.Fatalf("expected default config path, got %q", opts.configPath)
	}
	if len(opts.args) != 1 || opts.args[0] != "site" {
		t.Fatalf("unexpected positional args: %v", opts.args)
	}

	if _, err := parseOptions([]string{"-no-such-flag"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestApplyModeOptions(t *testing.T) {
	cases := []struct {
		name    string
		opts    cliOptions
		wantErr string
	}{
		{name: "CheckAndWatch", opts: cliOptions{check: true, watch: true}, wantErr: "cannot be combined"},
		{name: "DryRunWithCheck", opts: cliOptions{check: true, dryRun: true}, wantErr: "--dry-run"},
		{name: "MapWithWatch", opts: cliOptions{watch: true, mapPath: "m.yaml"}, wantErr: "--map"},
		{name: "TooManyRoots", opts: cliOptions{args: []string{"a", "b"}}, wantErr: "at most one"},
		{name: "HistoryOutputsRequireHistory", opts: cliOptions{historyTSV: "t.tsv"}, wantErr: "require --history"},
		{name: "HistoryWithWatch", opts: cliOptions{history: true, watch: true, historyWindow: "24h"}, wantErr: "--watch"},
		{name: "BadWindow", opts: cliOptions{history: true, historyWindow: "soon"}, wantErr: "--history-window"},
		{name: "BadSince", opts: cliOptions{history: true, historyWindow: "1h", since: "yesterday"}, wantErr: "--since"},
		{name: "Plain", opts: cliOptions{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := applyModeOptions(&tc.opts, config.DefaultConfig())
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestApplyModeOptions_RootArgAndHistory(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := &cliOptions{args: []string{"./public"}, history: true, historyWindow: "12h"}
	if err := applyModeOptions(opts, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Project.Root != "./public" {
		t.Fatalf("expected root override, got %q", cfg.Project.Root)
	}
	if !cfg.DB.Enabled {
		t.Fatal("expected --history to enable the history database")
	}
}

func TestPrepare_MapIsRelativeToWorkingDirectory(t *testing.T) {
	cwd := t.TempDir()
	cfg := config.DefaultConfig()
	opts := &cliOptions{args: []string{"site"}, mapPath: "renames.yaml"}

	paths, err := prepare(cfg, opts, cwd)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if paths.ProjectRoot != filepath.Join(cwd, "site") {
		t.Fatalf("unexpected project root %q", paths.ProjectRoot)
	}
	if paths.RenameMapPath != filepath.Join(cwd, "renames.yaml") {
		t.Fatalf("unexpected rename map path %q", paths.RenameMapPath)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("DefaultsWhenNoFile", func(t *testing.T) {
		cfg, path, err := loadConfig(defaultConfigPath, t.TempDir())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if path != "" || cfg.Case.Check != config.CaseStrict {
			t.Fatalf("expected defaults, got path=%q check=%q", path, cfg.Case.Check)
		}
	})

	t.Run("DiscoversDotDirectory", func(t *testing.T) {
		cwd := t.TempDir()
		dir := filepath.Join(cwd, ".relink")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(dir, defaultConfigPath)
		if err := os.WriteFile(want, []byte("[case]\ncheck = \"fold\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, path, err := loadConfig(defaultConfigPath, cwd)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if path != want || cfg.Case.Check != config.CaseFold {
			t.Fatalf("unexpected config: path=%q check=%q", path, cfg.Case.Check)
		}
	})

	t.Run("ExplicitPathMustExist", func(t *testing.T) {
		if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), t.TempDir()); err == nil {
			t.Fatal("expected error for missing explicit config")
		}
	})
}

func TestExitCode(t *testing.T) {
	clean := report.Summary{}
	broken := report.Summary{Stats: report.LinkStats{Broken: 1}}
	unresolved := report.Summary{Stats: report.LinkStats{Unresolved: 2}}

	if got := exitCode(broken, false); got != exitOK {
		t.Fatalf("broken links without strict should exit 0, got %d", got)
	}
	if got := exitCode(clean, true); got != exitOK {
		t.Fatalf("clean strict run should exit 0, got %d", got)
	}
	if got := exitCode(broken, true); got != exitBroken {
		t.Fatalf("expected %d, got %d", exitBroken, got)
	}
	if got := exitCode(unresolved, true); got != exitBroken {
		t.Fatalf("expected %d, got %d", exitBroken, got)
	}
}

func TestFilterSince(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{ID: "a", StartedAt: base},
		{ID: "b", StartedAt: base.Add(24 * time.Hour)},
	}
	got := filterSince(runs, base.Add(time.Hour))
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected filtered runs: %+v", got)
	}
	if len(filterSince(runs, time.Time{})) != 2 {
		t.Fatal("zero since should keep every run")
	}
}

func TestRenderSummary(t *testing.T) {
	s := report.Summary{
		RunID: "run-1",
		Mode:  report.ModeCheck,
		Root:  "/site",
		Stats: report.LinkStats{Files: 2, Checked: 5, Broken: 1},
		Broken: []checker.Entry{
			{File: "index.html", Line: 3, Link: "gone.png", Status: checker.StatusBroken, Reason: checker.ReasonMissingTarget},
		},
	}
	out := renderSummary(s)
	for _, want := range []string{"relink check", "5 checked", "1 broken", "index.html:3 gone.png (missing-target)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "rewritten") {
		t.Fatalf("check summary should not list rewrite counts:\n%s", out)
	}

	clean := renderSummary(report.Summary{Mode: report.ModeRewrite})
	if !strings.Contains(clean, "All links resolve") {
		t.Fatalf("expected clean banner:\n%s", clean)
	}
}

func TestRun_VersionAndBadFlags(t *testing.T) {
	if got := Run([]string{"-version"}); got != exitOK {
		t.Fatalf("expected exit 0 for -version, got %d", got)
	}
	if got := Run([]string{"-bogus"}); got != exitUsage {
		t.Fatalf("expected usage exit code, got %d", got)
	}
}
