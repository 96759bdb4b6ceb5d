package app

import (
	"context"
	"os"
	"time"

	"relink/internal/core/errors"
	"relink/internal/data/renamemap"
	"relink/internal/engine/checker"
	"relink/internal/engine/report"
	"relink/internal/engine/resolver"
	"relink/internal/engine/rewriter"
	"relink/internal/engine/routes"
	"relink/internal/engine/scanner"
	"relink/internal/engine/tree"
	"relink/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Run rewrites every internal link in the project, then runs the checker over
// the result. File-level failures are recorded in the summary; the returned
// error is reserved for problems that stop the whole run.
func (a *App) Run(ctx context.Context) (report.Summary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithAttributes(
		attribute.String("root", a.Paths.ProjectRoot),
		attribute.Bool("dry_run", a.opts.DryRun),
	))
	defer span.End()

	renames, err := a.loadRenameMap()
	if err != nil {
		return report.Summary{}, err
	}

	agg := report.NewAggregator(a.Paths.ProjectRoot, report.ModeRewrite)
	table, warnings := routes.Load(a.Paths.ProjectRoot, a.rules, a.logger)
	agg.RecordWarnings(warnings)

	start := time.Now()
	snap, err := tree.Build(ctx, a.Paths.ProjectRoot, a.rules)
	if err != nil {
		return report.Summary{}, errors.Wrap(err, errors.CodeReadFailed, "walk project tree")
	}
	if err := a.rewriteAll(ctx, snap, renames, table, agg); err != nil {
		return report.Summary{}, err
	}
	observability.RunDuration.WithLabelValues("rewrite").Observe(time.Since(start).Seconds())

	if err := a.checkInto(ctx, table, agg); err != nil {
		return report.Summary{}, err
	}

	summary := agg.Summary()
	span.SetAttributes(
		attribute.String("run_id", summary.RunID),
		attribute.Int("rewritten", summary.Stats.Rewritten),
		attribute.Int("broken", summary.Stats.Broken),
	)
	a.logger.Info("run complete",
		"run_id", summary.RunID,
		"files", summary.Stats.Files,
		"changed", summary.Stats.FilesChanged,
		"rewritten", summary.Stats.Rewritten,
		"unresolved", summary.Stats.Unresolved,
		"broken", summary.Stats.Broken,
		"duration", summary.Duration,
	)
	a.record(summary)
	return summary, nil
}

func (a *App) rewriteAll(ctx context.Context, snap *tree.Snapshot, renames *renamemap.Map, table *routes.Table, agg *report.Aggregator) error {
	res := resolver.New(a.rules, renames, table, snap)
	rw := rewriter.New(a.logger, a.opts.DryRun)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Config.Project.Workers, 1))
	for _, file := range snap.ContentFiles() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.processFile(gctx, file, res, rw, agg)
			return nil
		})
	}
	return g.Wait()
}

// processFile scans, resolves and rewrites one file. Tokens of a file are
// never split across workers.
func (a *App) processFile(ctx context.Context, file tree.ContentFile, res *resolver.Resolver, rw *rewriter.Rewriter, agg *report.Aggregator) {
	_, span := observability.Tracer.Start(ctx, "app.processFile", trace.WithAttributes(
		attribute.String("file", file.Rel),
		attribute.String("format", string(file.Format)),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.FileDuration.WithLabelValues(string(file.Format)).Observe(time.Since(start).Seconds())
	}()

	content, err := os.ReadFile(file.Abs)
	if err != nil {
		a.fileError(agg, file.Rel, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read content file"), errors.CtxPath, file.Rel))
		return
	}
	tokens, err := a.scanner.Scan(file.Rel, content, file.Format)
	if err != nil {
		a.fileError(agg, file.Rel, err)
		return
	}

	lines := scanner.NewLineIndex(content)
	outcome := report.FileOutcome{File: file.Rel, Links: make([]report.LinkOutcome, 0, len(tokens))}
	var edits []rewriter.Edit
	for _, tok := range tokens {
		result := res.Resolve(file.Rel, tok)
		line := lines.Line(tok.Start)
		switch result.Outcome {
		case resolver.Rewritten:
			edits = append(edits, rewriter.EditFor(tok, result.NewText))
			a.logger.Debug("rewriting link", "file", file.Rel, "line", line, "from", tok.Value, "to", result.NewText, "reason", result.Reason)
		case resolver.Unresolved:
			a.logger.Warn("unresolved link", "file", file.Rel, "line", line, "link", tok.Value, "reason", result.Reason)
		case resolver.Unchanged:
		}
		outcome.Links = append(outcome.Links, report.LinkOutcome{Token: tok, Line: line, Result: result})
	}

	changed, err := rw.Rewrite(file.Abs, content, edits)
	if err != nil {
		a.fileError(agg, file.Rel, err)
		return
	}
	outcome.Changed = changed
	span.SetAttributes(attribute.Int("tokens", len(tokens)), attribute.Int("edits", len(edits)))
	agg.RecordFile(outcome)
}

func (a *App) fileError(agg *report.Aggregator, file string, err error) {
	code := errors.CodeOf(err)
	observability.FileErrorsTotal.WithLabelValues(string(code)).Inc()
	a.logger.Warn("skipping file", "file", file, "code", code, "error", err)
	agg.RecordFileError(file, string(report.ModeRewrite), err)
}

// Check validates the project tree as it is on disk, without writing.
func (a *App) Check(ctx context.Context) (report.Summary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Check", trace.WithAttributes(
		attribute.String("root", a.Paths.ProjectRoot),
	))
	defer span.End()

	agg := report.NewAggregator(a.Paths.ProjectRoot, report.ModeCheck)
	table, warnings := routes.Load(a.Paths.ProjectRoot, a.rules, a.logger)
	agg.RecordWarnings(warnings)
	if err := a.checkInto(ctx, table, agg); err != nil {
		return report.Summary{}, err
	}

	summary := agg.Summary()
	span.SetAttributes(attribute.String("run_id", summary.RunID), attribute.Int("broken", summary.Stats.Broken))
	a.logger.Info("check complete",
		"run_id", summary.RunID,
		"files", summary.Stats.Files,
		"checked", summary.Stats.Checked,
		"broken", summary.Stats.Broken,
		"duration", summary.Duration,
	)
	a.record(summary)
	return summary, nil
}

func (a *App) checkInto(ctx context.Context, table *routes.Table, agg *report.Aggregator) error {
	start := time.Now()
	c := checker.New(a.rules, table, a.scanner, a.Config.Project.Workers, a.logger)
	result, err := c.Check(ctx, a.Paths.ProjectRoot)
	if err != nil {
		return err
	}
	observability.RunDuration.WithLabelValues("check").Observe(time.Since(start).Seconds())
	agg.RecordCheck(result)
	return nil
}
