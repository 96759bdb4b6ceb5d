package cli

import (
	"context"
	"log/slog"
	"os"

	coreapp "relink/internal/core/app"
	"relink/internal/core/config"
	"relink/internal/engine/report"
)

// runWatch keeps checking the tree until ctx is cancelled. A change to the
// config file restarts the watch with the reloaded configuration.
func runWatch(ctx context.Context, cfg *config.Config, cfgPath string, paths config.ResolvedPaths, opts cliOptions, cwd string) int {
	reloads := make(chan *config.Config, 1)
	if cfgPath != "" {
		cw := config.NewWatcher(cfgPath, func(next *config.Config) {
			select {
			case <-reloads:
			default:
			}
			select {
			case reloads <- next:
			default:
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable; reloads disabled", "path", cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	onSummary := func(s report.Summary) {
		printSummary(os.Stdout, s)
		if err := writeReports(opts, s); err != nil {
			slog.Error("failed to write reports", "error", err)
		}
	}

	for {
		svc, err := coreapp.New(cfg, paths, coreapp.Options{}, slog.Default())
		if err != nil {
			slog.Error("failed to initialize app", "error", err)
			return exitError
		}

		watchCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- svc.Watch(watchCtx, onSummary)
		}()

		select {
		case <-ctx.Done():
			cancel()
			<-done
			_ = svc.Close()
			return exitOK

		case err := <-done:
			cancel()
			_ = svc.Close()
			if err != nil {
				slog.Error("watch failed", "error", err)
				return exitError
			}
			return exitOK

		case next := <-reloads:
			cancel()
			<-done
			_ = svc.Close()

			nextPaths, err := prepare(next, &opts, cwd)
			if err != nil {
				slog.Warn("reloaded config rejected; keeping previous configuration", "error", err)
				continue
			}
			cfg, paths = next, nextPaths
			slog.Info("configuration reloaded; restarting watch", "root", paths.ProjectRoot)
		}
	}
}
