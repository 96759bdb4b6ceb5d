// Package tree takes an immutable snapshot of a project directory: which
// files and directories exist, their case-folded aliases, and which files
// are scannable content.
package tree

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"relink/internal/core/config"
	"relink/internal/shared/util"

	"golang.org/x/text/cases"
)

// ContentFile is a file the scanner understands.
type ContentFile struct {
	Rel    string
	Abs    string
	Format config.Format
}

// Snapshot is safe for concurrent reads once built.
type Snapshot struct {
	root    string
	files   map[string]bool
	dirs    map[string]bool
	folded  map[string][]string
	content []ContentFile
}

// Fold returns the canonical case-folded form of s. A new Caser is created
// per call because cases.Caser is not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Build walks root. Excluded directories are skipped entirely; excluded files
// still exist as link targets but are not listed as content.
func Build(ctx context.Context, root string, rules *config.Rules) (*Snapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %q: %w", root, err)
	}
	s := &Snapshot{
		root:   absRoot,
		files:  make(map[string]bool),
		dirs:   map[string]bool{"": true},
		folded: make(map[string][]string),
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := util.RelSlash(absRoot, path)
		if err != nil {
			return err
		}
		if rel == "" {
			return nil
		}

		base := d.Name()
		if d.IsDir() {
			if rules.ExcludedDir(rel, base) {
				return filepath.SkipDir
			}
			s.dirs[rel] = true
			s.addFolded(rel)
			return nil
		}

		s.files[rel] = true
		s.addFolded(rel)
		if rules.ExcludedFile(rel, base) {
			return nil
		}
		if format, ok := rules.FormatOf(base); ok {
			s.content = append(s.content, ContentFile{Rel: rel, Abs: path, Format: format})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	sort.Slice(s.content, func(i, j int) bool { return s.content[i].Rel < s.content[j].Rel })
	for key := range s.folded {
		sort.Strings(s.folded[key])
	}
	return s, nil
}

func (s *Snapshot) addFolded(rel string) {
	key := Fold(rel)
	s.folded[key] = append(s.folded[key], rel)
}

func (s *Snapshot) Root() string { return s.root }

// HasFile reports exact, case-sensitive file existence.
func (s *Snapshot) HasFile(rel string) bool { return s.files[rel] }

// HasDir reports exact directory existence; "" is the root.
func (s *Snapshot) HasDir(rel string) bool { return s.dirs[rel] }

// FoldMatches returns every existing file or directory whose folded path
// equals the folded rel, in sorted order.
func (s *Snapshot) FoldMatches(rel string) []string {
	return s.folded[Fold(rel)]
}

// ContentFiles returns the scannable files sorted by relative path.
func (s *Snapshot) ContentFiles() []ContentFile {
	return s.content
}

// Abs joins a relative slash path onto the snapshot root.
func (s *Snapshot) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// FileCount is the number of files (content or not) in the snapshot.
func (s *Snapshot) FileCount() int { return len(s.files) }
