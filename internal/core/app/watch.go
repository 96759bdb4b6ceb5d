package app

import (
	"context"
	"path/filepath"

	"relink/internal/core/watcher"
	"relink/internal/data/queue"
	"relink/internal/engine/report"
)

const historyQueueSize = 16

// Watch checks the tree once, then again after every debounced batch of
// relevant changes. It blocks until ctx is cancelled. Watch never rewrites;
// writes of its own would feed back into the watcher.
func (a *App) Watch(ctx context.Context, onSummary func(report.Summary)) error {
	if a.recorder != nil {
		direct := a.recorder
		async := queue.NewRecorder(direct, historyQueueSize, a.logger)
		a.recorder = async
		defer func() {
			_ = async.Close()
			a.recorder = direct
		}()
	}

	check := func() {
		summary, err := a.Check(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Error("check failed", "error", err)
			}
			return
		}
		if onSummary != nil {
			onSummary(summary)
		}
	}

	var extra []string
	if a.Paths.RenameMapPath != "" {
		extra = append(extra, a.Paths.RenameMapPath)
	}
	w, err := watcher.NewWatcher(a.Paths.ProjectRoot, a.rules, a.Config.Watch.Debounce, extra, func(paths []string) {
		a.logger.Info("change detected", "paths", len(paths))
		for _, p := range paths {
			a.logger.Debug("changed", "path", p)
		}
		check()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	// History writes must not trigger checks of their own.
	if dbDir := filepath.Dir(a.Paths.DBPath); a.store != nil && dbDir != filepath.Clean(a.Paths.ProjectRoot) {
		w.Ignore(dbDir)
	}

	check()
	if err := w.Watch(); err != nil {
		return err
	}
	a.logger.Info("watching for changes", "root", a.Paths.ProjectRoot, "debounce", a.Config.Watch.Debounce)

	<-ctx.Done()
	return nil
}
