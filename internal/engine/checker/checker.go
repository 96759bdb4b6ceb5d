// Package checker validates every link in the final tree. It works only
// from what is on disk and the route table; it never sees the rename map.
package checker

import (
	"context"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"relink/internal/core/config"
	"relink/internal/core/errors"
	"relink/internal/engine/routes"
	"relink/internal/engine/scanner"
	"relink/internal/engine/tree"
	"relink/internal/shared/observability"
	"relink/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusBroken  Status = "broken"
	StatusIgnored Status = "ignored"
)

const (
	ReasonCaseMismatch  = "case-mismatch"
	ReasonMissingTarget = "missing-target"
	ReasonCycleDetected = "cycle-detected"
	ReasonOutsideRoot   = "outside-root"
)

// Entry is the verdict for one token.
type Entry struct {
	File   string        `json:"file"`
	Line   int           `json:"line"`
	Link   string        `json:"link"`
	Class  scanner.Class `json:"class"`
	Status Status        `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Target string        `json:"target,omitempty"`
}

// FileError records a content file that could not be checked.
type FileError struct {
	File    string
	Code    errors.ErrorCode
	Message string
}

type Result struct {
	Entries    []Entry
	FileErrors []FileError
	Files      int
	Checked    int
	Broken     int
	Ignored    int
}

// BrokenEntries returns the broken entries in file order.
func (r *Result) BrokenEntries() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status == StatusBroken {
			out = append(out, e)
		}
	}
	return out
}

type Checker struct {
	rules   *config.Rules
	routes  *routes.Table
	scanner *scanner.Scanner
	workers int
	logger  *slog.Logger
}

func New(rules *config.Rules, table *routes.Table, sc *scanner.Scanner, workers int, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if sc == nil {
		sc = scanner.New(rules, nil)
	}
	if workers < 1 {
		workers = 1
	}
	return &Checker{rules: rules, routes: table, scanner: sc, workers: workers, logger: logger}
}

// Check walks root, scans every content file and checks each token.
func (c *Checker) Check(ctx context.Context, root string) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "checker.Check")
	defer span.End()

	snap, err := tree.Build(ctx, root, c.rules)
	if err != nil {
		return nil, err
	}
	files := snap.ContentFiles()
	span.SetAttributes(attribute.Int("files", len(files)))

	var (
		mu     sync.Mutex
		result = &Result{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, ferr := c.checkFile(snap, file)
			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				result.FileErrors = append(result.FileErrors, *ferr)
				return nil
			}
			result.Files++
			result.Entries = append(result.Entries, entries...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	sort.Slice(result.FileErrors, func(i, j int) bool { return result.FileErrors[i].File < result.FileErrors[j].File })

	for _, e := range result.Entries {
		observability.CheckEntriesTotal.WithLabelValues(string(e.Status)).Inc()
		switch e.Status {
		case StatusOK:
			result.Checked++
		case StatusBroken:
			result.Checked++
			result.Broken++
			c.logger.Warn("broken link", "file", e.File, "line", e.Line, "link", e.Link, "reason", e.Reason)
		case StatusIgnored:
			result.Ignored++
		}
	}
	observability.BrokenLinks.Set(float64(result.Broken))
	span.SetAttributes(attribute.Int("broken", result.Broken))
	return result, nil
}

func (c *Checker) checkFile(snap *tree.Snapshot, file tree.ContentFile) ([]Entry, *FileError) {
	content, err := os.ReadFile(file.Abs)
	if err != nil {
		return nil, c.fileError(file.Rel, errors.Wrap(err, errors.CodeReadFailed, "read content file"))
	}
	tokens, err := c.scanner.Scan(file.Rel, content, file.Format)
	if err != nil {
		return nil, c.fileError(file.Rel, err)
	}

	lines := scanner.NewLineIndex(content)
	entries := make([]Entry, 0, len(tokens))
	for _, tok := range tokens {
		e := c.CheckToken(snap, file.Rel, tok)
		e.Line = lines.Line(tok.Start)
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Checker) fileError(file string, err error) *FileError {
	code := errors.CodeOf(err)
	observability.FileErrorsTotal.WithLabelValues(string(code)).Inc()
	c.logger.Warn("skipping unreadable file", "file", file, "code", code, "error", err)
	return &FileError{File: file, Code: code, Message: err.Error()}
}

// CheckToken checks one token found in file against snap.
func (c *Checker) CheckToken(snap *tree.Snapshot, file string, tok scanner.Token) Entry {
	e := Entry{File: file, Link: tok.Value, Class: tok.Class}
	if !tok.Class.Internal() {
		e.Status = StatusIgnored
		e.Reason = tok.Class.String()
		return e
	}

	l := scanner.ParseLink(tok.Value)
	if l.Path == "" {
		e.Status = StatusOK
		e.Target = file
		return e
	}

	var requested string
	if tok.Class == scanner.ClassRooted {
		requested = strings.TrimPrefix(path.Clean("/"+l.Path), "/")
	} else {
		requested = path.Clean(path.Join(util.SlashDir(file), l.Path))
		if requested == "." {
			requested = ""
		}
	}
	if util.EscapesRoot(requested) {
		e.Status = StatusBroken
		e.Reason = ReasonOutsideRoot
		return e
	}

	target, reason := c.lookup(snap, requested, l.Dir, 0, make(map[string]bool))
	if reason != "" {
		e.Status = StatusBroken
		e.Reason = reason
		return e
	}
	e.Status = StatusOK
	e.Target = target
	return e
}

// lookup returns the matched path, or a non-empty broken reason.
func (c *Checker) lookup(snap *tree.Snapshot, p string, dir bool, depth int, visited map[string]bool) (string, string) {
	if exists(snap, c.rules.DirectoryIndex, p, dir) {
		return p, ""
	}

	var folded []string
	for _, candidate := range snap.FoldMatches(p) {
		if exists(snap, c.rules.DirectoryIndex, candidate, dir) {
			folded = append(folded, candidate)
		}
	}
	if len(folded) > 0 && c.rules.CheckCase == config.CaseFold {
		return folded[0], ""
	}

	if rule, ok := c.routes.Match("/" + p); ok {
		if visited[p] || depth >= c.rules.MaxDepth {
			return "", ReasonCycleDetected
		}
		visited[p] = true
		if rule.External() {
			return rule.Target, ""
		}
		target := scanner.ParseLink(rule.TargetPath())
		next := strings.TrimPrefix(path.Clean("/"+target.Path), "/")
		return c.lookup(snap, next, target.Dir, depth+1, visited)
	}

	if len(folded) > 0 {
		return "", ReasonCaseMismatch
	}
	return "", ReasonMissingTarget
}

func exists(snap *tree.Snapshot, indexes []string, p string, dir bool) bool {
	if !dir && snap.HasFile(p) {
		return true
	}
	if !snap.HasDir(p) {
		return false
	}
	for _, index := range indexes {
		if snap.HasFile(path.Join(p, index)) {
			return true
		}
	}
	return false
}
