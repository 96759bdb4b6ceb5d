package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "relink/internal/core/app"
	"relink/internal/core/config"
	"relink/internal/data/history"
	"relink/internal/engine/report"
	"relink/internal/shared/observability"
	"relink/internal/shared/version"
	uireport "relink/internal/ui/report"
)

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitBroken = 3
)

const summaryMarker = "summary"

// Run executes the relink command line and returns the process exit code.
func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return exitUsage
	}

	if opts.version {
		fmt.Printf("relink v%s\n", version.Version)
		return exitOK
	}

	configureLogging(opts.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return exitError
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitError
	}
	config.ApplyEnvOverrides(cfg)

	paths, err := prepare(cfg, &opts, cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return exitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		server := observability.NewServer(addr)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	if opts.watch {
		return runWatch(ctx, cfg, cfgPath, paths, opts, cwd)
	}

	svc, err := coreapp.New(cfg, paths, coreapp.Options{DryRun: opts.dryRun}, slog.Default())
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitError
	}
	defer svc.Close()

	var summary report.Summary
	if opts.check {
		summary, err = svc.Check(ctx)
	} else {
		summary, err = svc.Run(ctx)
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		return exitError
	}

	printSummary(os.Stdout, summary)
	if err := writeReports(opts, summary); err != nil {
		slog.Error("failed to write reports", "error", err)
		return exitError
	}

	if err := runHistoryMode(opts, svc); err != nil {
		slog.Error("history mode failed", "error", err)
		return exitError
	}

	return exitCode(summary, opts.strict)
}

// prepare folds command line overrides into cfg, validates it and resolves
// runtime paths. It runs again for every reloaded config in watch mode.
func prepare(cfg *config.Config, opts *cliOptions, cwd string) (config.ResolvedPaths, error) {
	if err := applyModeOptions(opts, cfg); err != nil {
		return config.ResolvedPaths{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.ResolvedPaths{}, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return config.ResolvedPaths{}, fmt.Errorf("resolve runtime paths: %w", err)
	}
	if opts.mapPath != "" {
		paths.RenameMapPath = config.ResolveRelative(cwd, opts.mapPath)
	}
	return paths, nil
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if opts.check && opts.watch {
		return fmt.Errorf("--check and --watch cannot be combined; --watch only checks")
	}
	if opts.dryRun && (opts.check || opts.watch) {
		return fmt.Errorf("--dry-run only applies to rewrite runs")
	}
	if opts.mapPath != "" && (opts.check || opts.watch) {
		return fmt.Errorf("--map only applies to rewrite runs")
	}

	if len(opts.args) > 1 {
		return fmt.Errorf("expected at most one project root argument, got %d", len(opts.args))
	}
	if len(opts.args) == 1 {
		cfg.Project.Root = opts.args[0]
	}

	if (opts.historyTSV != "" || opts.historyJSON != "" || opts.since != "") && !opts.history {
		return fmt.Errorf("--history-tsv/--history-json/--since require --history")
	}
	if opts.history {
		if opts.watch {
			return fmt.Errorf("--history cannot be combined with --watch")
		}
		if _, err := parseHistoryWindow(opts.historyWindow); err != nil {
			return err
		}
		if _, err := parseSince(opts.since); err != nil {
			return err
		}
		cfg.DB.Enabled = true
	}
	return nil
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	for _, candidate := range discoverDefaultConfig(cwd) {
		cfg, err := config.Load(candidate)
		if err == nil {
			return cfg, candidate, nil
		}
		if os.IsNotExist(err) {
			continue
		}
		return nil, "", err
	}

	slog.Debug("no config file found; using defaults", "cwd", cwd)
	return config.DefaultConfig(), "", nil
}

func discoverDefaultConfig(cwd string) []string {
	return []string{
		filepath.Clean(filepath.Join(cwd, defaultConfigPath)),
		filepath.Clean(filepath.Join(cwd, ".relink", defaultConfigPath)),
	}
}

// exitCode reports broken or unresolved links only when strict is set.
func exitCode(summary report.Summary, strict bool) int {
	if !strict {
		return exitOK
	}
	s := summary.Stats
	if s.Broken > 0 || s.Unresolved > 0 || s.FileErrors > 0 {
		return exitBroken
	}
	return exitOK
}

func writeReports(opts cliOptions, summary report.Summary) error {
	if opts.reportJSON != "" {
		raw, err := uireport.RenderSummaryJSON(summary)
		if err != nil {
			return fmt.Errorf("render summary JSON: %w", err)
		}
		if err := uireport.WriteAtomic(opts.reportJSON, raw); err != nil {
			return fmt.Errorf("write summary JSON %q: %w", opts.reportJSON, err)
		}
	}
	if opts.reportTSV != "" {
		raw, err := uireport.RenderBrokenTSV(summary)
		if err != nil {
			return fmt.Errorf("render link TSV: %w", err)
		}
		if err := uireport.WriteAtomic(opts.reportTSV, raw); err != nil {
			return fmt.Errorf("write link TSV %q: %w", opts.reportTSV, err)
		}
	}
	if opts.reportMarkdown != "" {
		section := uireport.RenderSummaryMarkdown(summary)
		if err := uireport.WriteMarkdown(opts.reportMarkdown, summaryMarker, section); err != nil {
			return fmt.Errorf("write markdown report %q: %w", opts.reportMarkdown, err)
		}
	}
	return nil
}

func runHistoryMode(opts cliOptions, svc *coreapp.App) error {
	if !opts.history {
		return nil
	}
	reader := svc.History()
	if reader == nil {
		return fmt.Errorf("history store unavailable")
	}

	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	window, err := parseHistoryWindow(opts.historyWindow)
	if err != nil {
		return err
	}

	runs, err := reader.Runs()
	if err != nil {
		return err
	}
	runs = filterSince(runs, since)
	if len(runs) == 0 {
		fmt.Println("History: no runs matched the requested time window.")
		return nil
	}

	trend, err := history.BuildTrendReport(svc.Paths.ProjectRoot, runs, window)
	if err != nil {
		return err
	}

	fmt.Printf(
		"History: %d runs from %s to %s\n",
		trend.RunCount,
		trend.Since.Format("2006-01-02 15:04:05"),
		trend.Until.Format("2006-01-02 15:04:05"),
	)
	latest := trend.Points[len(trend.Points)-1]
	fmt.Printf(
		"Trend latest: rewritten=%d (%+d), unresolved=%d (%+d), broken=%d (%+d), avg broken=%.2f\n",
		latest.Rewritten,
		latest.DeltaRewritten,
		latest.Unresolved,
		latest.DeltaUnresolved,
		latest.Broken,
		latest.DeltaBroken,
		latest.AvgBroken,
	)

	if opts.historyTSV != "" {
		tsv, err := uireport.RenderTrendTSV(trend)
		if err != nil {
			return fmt.Errorf("render trend TSV: %w", err)
		}
		if err := uireport.WriteAtomic(opts.historyTSV, tsv); err != nil {
			return fmt.Errorf("write trend TSV %q: %w", opts.historyTSV, err)
		}
	}
	if opts.historyJSON != "" {
		raw, err := uireport.RenderTrendJSON(trend)
		if err != nil {
			return fmt.Errorf("render trend JSON: %w", err)
		}
		if err := uireport.WriteAtomic(opts.historyJSON, raw); err != nil {
			return fmt.Errorf("write trend JSON %q: %w", opts.historyJSON, err)
		}
	}
	return nil
}

func filterSince(runs []history.Run, since time.Time) []history.Run {
	if since.IsZero() {
		return runs
	}
	out := make([]history.Run, 0, len(runs))
	for _, run := range runs {
		if !run.StartedAt.Before(since) {
			out = append(out, run)
		}
	}
	return out
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("--history-window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--history-window must be > 0, got %q", value)
	}
	return d, nil
}

func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	// Logs go to stderr so stdout carries only the summary.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
