// Package app wires configuration, the rename map, the route table and the
// link engine into rewrite, check and watch runs.
package app

import (
	"fmt"
	"log/slog"

	"relink/internal/core/config"
	"relink/internal/core/ports"
	"relink/internal/data/history"
	"relink/internal/data/renamemap"
	"relink/internal/engine/report"
	"relink/internal/engine/scanner"
)

type Options struct {
	// DryRun resolves and reports without writing files.
	DryRun bool
	// RenameMap overrides the rename map loaded from Paths.RenameMapPath.
	RenameMap *renamemap.Map
}

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	rules   *config.Rules
	pools   *scanner.Pools
	scanner *scanner.Scanner
	opts    Options
	logger  *slog.Logger

	recorder ports.HistoryRecorder
	store    *history.Store
}

var _ ports.LinkService = (*App)(nil)

// New compiles cfg and, when enabled, opens the run history database.
func New(cfg *config.Config, paths config.ResolvedPaths, opts Options, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	rules, err := config.Compile(cfg)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	pools := scanner.NewPools()
	a := &App{
		Config:  cfg,
		Paths:   paths,
		rules:   rules,
		pools:   pools,
		scanner: scanner.New(rules, pools),
		opts:    opts,
		logger:  logger,
	}

	if cfg.DB.Enabled {
		store, err := history.Open(paths.DBPath, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.recorder = history.NewAdapter(store, paths.ProjectRoot)
	}
	return a, nil
}

// SetRecorder replaces the history recorder; nil disables recording.
func (a *App) SetRecorder(r ports.HistoryRecorder) {
	a.recorder = r
}

// History returns a reader over recorded runs, or nil when history is off.
func (a *App) History() ports.HistoryReader {
	if a.store == nil {
		return nil
	}
	return history.NewAdapter(a.store, a.Paths.ProjectRoot)
}

func (a *App) Rules() *config.Rules { return a.rules }

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *App) loadRenameMap() (*renamemap.Map, error) {
	if a.opts.RenameMap != nil {
		return a.opts.RenameMap, nil
	}
	if a.Paths.RenameMapPath == "" {
		a.logger.Info("no rename map configured; resolving against the current tree")
		return nil, nil
	}
	m, err := renamemap.Load(a.Paths.RenameMapPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded rename map", "path", a.Paths.RenameMapPath, "entries", m.Len())
	return m, nil
}

func (a *App) record(summary report.Summary) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(summary); err != nil {
		a.logger.Warn("failed to record run history", "run_id", summary.RunID, "error", err)
	}
}
