// Package rewriter applies resolved link replacements to file content and
// writes changed files back atomically.
package rewriter

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"relink/internal/core/errors"
	"relink/internal/shared/observability"
)

// Edit replaces src[Start:End] with Text. Text is already escaped for the
// token's context.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Apply returns src with edits applied. With no edits the input slice is
// returned as is. Overlapping or out-of-range edits are rejected.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	limit := len(src)
	for _, e := range sorted {
		if e.Start < 0 || e.Start > e.End || e.End > len(src) {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("edit [%d,%d) out of range", e.Start, e.End))
		}
		if e.End > limit {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("edit [%d,%d) overlaps a later edit", e.Start, e.End))
		}
		limit = e.Start
	}

	out := make([]byte, len(src))
	copy(out, src)
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Text))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Text...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out, nil
}

type Rewriter struct {
	logger *slog.Logger
	dryRun bool
}

func New(logger *slog.Logger, dryRun bool) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{logger: logger, dryRun: dryRun}
}

// Rewrite applies edits to src and replaces the file at path when the
// content changed. It reports whether the content changed.
func (r *Rewriter) Rewrite(path string, src []byte, edits []Edit) (bool, error) {
	out, err := Apply(src, edits)
	if err != nil {
		return false, errors.AddContext(err, errors.CtxPath, path)
	}
	if bytes.Equal(out, src) {
		return false, nil
	}
	if r.dryRun {
		r.logger.Info("would rewrite file", "path", path, "edits", len(edits))
		return true, nil
	}
	if err := WriteFile(path, out); err != nil {
		return false, err
	}
	observability.FilesRewrittenTotal.Inc()
	r.logger.Debug("rewrote file", "path", path, "edits", len(edits))
	return true, nil
}

// WriteFile replaces path with content through a temporary file in the same
// directory. The existing file mode is kept.
func WriteFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return writeErr(err, path, "stat target")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".relink-*.tmp")
	if err != nil {
		return writeErr(err, path, "create temp file")
	}
	tmpName := tmp.Name()

	var failure error
	if _, err := tmp.Write(content); err != nil {
		failure = writeErr(err, path, "write temp file")
	}
	if failure == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			failure = writeErr(err, path, "chmod temp file")
		}
	}
	if failure == nil {
		if err := tmp.Sync(); err != nil {
			failure = writeErr(err, path, "sync temp file")
		}
	}
	if err := tmp.Close(); err != nil && failure == nil {
		failure = writeErr(err, path, "close temp file")
	}
	if failure != nil {
		_ = os.Remove(tmpName)
		return failure
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return writeErr(err, path, "replace file")
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return writeErr(err, dir, "open directory")
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return writeErr(err, dir, "sync directory")
	}
	return nil
}

func writeErr(err error, path, msg string) error {
	return errors.AddContext(errors.Wrap(err, errors.CodeWriteFailed, msg), errors.CtxPath, path)
}
