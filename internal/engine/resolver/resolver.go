// Package resolver decides, for every internal link, whether it already
// points at a real file, which file it should point at after renaming, or
// that it cannot be resolved.
package resolver

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"relink/internal/core/config"
	"relink/internal/data/renamemap"
	"relink/internal/engine/routes"
	"relink/internal/engine/scanner"
	"relink/internal/engine/tree"
	"relink/internal/shared/util"
)

// Resolver holds only immutable inputs and is safe for concurrent use.
type Resolver struct {
	rules   *config.Rules
	renames *renamemap.Map
	routes  *routes.Table
	tree    *tree.Snapshot

	// folded path → finals reachable by folding either a rename key or a final
	folded map[string][]string
}

func New(rules *config.Rules, renames *renamemap.Map, table *routes.Table, snap *tree.Snapshot) *Resolver {
	r := &Resolver{
		rules:   rules,
		renames: renames,
		routes:  table,
		tree:    snap,
		folded:  make(map[string][]string),
	}
	for _, e := range renames.Entries() {
		r.addFolded(e.Original, e.Final)
		r.addFolded(e.Final, e.Final)
	}
	return r
}

func (r *Resolver) addFolded(key, final string) {
	k := tree.Fold(key)
	for _, existing := range r.folded[k] {
		if existing == final {
			return
		}
	}
	r.folded[k] = append(r.folded[k], final)
}

// hit is a successful lookup: final is the project path the link should
// point at and reason explains any change from the requested path.
type hit struct {
	final    string
	reason   Reason
	external bool
}

type walk struct {
	visited   map[string]bool
	ambiguous bool
}

// Resolve resolves one internal token found in file, where file is the
// containing file's final project path. Non-internal tokens are Unchanged.
func (r *Resolver) Resolve(file string, tok scanner.Token) Result {
	if !tok.Class.Internal() {
		return unchanged("")
	}
	l := scanner.ParseLink(tok.Value)
	if l.Path == "" {
		// Query-only or fragment-only links refer to the document itself.
		return unchanged(file)
	}

	originDir := util.SlashDir(r.origin(file))
	finalDir := util.SlashDir(file)

	var requested string
	if tok.Class == scanner.ClassRooted {
		requested = path.Clean("/" + l.Path)
		requested = strings.TrimPrefix(requested, "/")
	} else {
		requested = path.Clean(path.Join(originDir, l.Path))
		if requested == "." {
			requested = ""
		}
	}
	if util.EscapesRoot(requested) {
		return unresolved(ReasonOutsideRoot)
	}

	w := &walk{visited: make(map[string]bool)}
	h, failure, ok := r.lookup(requested, l.Dir, 0, w)
	if !ok {
		return unresolved(failure)
	}
	if h.external {
		return unchanged("")
	}

	moved := tok.Class == scanner.ClassRelative && originDir != finalDir
	if h.final == requested && !moved {
		return unchanged(h.final)
	}
	reason := h.reason
	if h.final == requested || reason == ReasonNone {
		reason = ReasonRelocatedSource
	}
	text := r.render(tok.Class, l, h.final, finalDir)
	if text == strings.TrimSpace(tok.Value) {
		return unchanged(h.final)
	}
	return rewritten(text, reason, h.final)
}

// origin maps a file's final path back to where it lived before renaming.
func (r *Resolver) origin(file string) string {
	if original, ok := r.renames.Reverse(file); ok {
		return original
	}
	return file
}

// lookup runs the strategy chain for a project path. On failure it returns
// the most specific reason seen.
func (r *Resolver) lookup(p string, dir bool, depth int, w *walk) (hit, Reason, bool) {
	// 1. exact rename key
	if final, ok := r.renames.Lookup(p); ok && !dir {
		if final == p {
			return hit{final: p}, ReasonNone, true
		}
		return hit{final: final, reason: ReasonExactMatch}, ReasonNone, true
	}

	// 2. verbatim existence
	if r.exists(p, dir) {
		return hit{final: p}, ReasonNone, true
	}

	// 3. case fold
	if r.rules.ResolveCase == config.CaseFix {
		candidates := r.foldCandidates(p, dir)
		switch len(candidates) {
		case 0:
		case 1:
			return hit{final: candidates[0], reason: ReasonCaseFixed}, ReasonNone, true
		default:
			w.ambiguous = true
		}
	}

	// 4. route table
	rule, ok := r.routes.Match("/" + p)
	if ok {
		if w.visited[p] || depth >= r.rules.MaxDepth {
			return hit{}, ReasonCycleDetected, false
		}
		w.visited[p] = true
		if rule.External() {
			return hit{external: true}, ReasonNone, true
		}

		target := scanner.ParseLink(rule.TargetPath())
		next := strings.TrimPrefix(path.Clean("/"+target.Path), "/")
		h, failure, ok := r.lookup(next, target.Dir, depth+1, w)
		if !ok {
			return hit{}, failure, false
		}
		if h.external {
			return h, ReasonNone, true
		}
		return hit{final: h.final, reason: ReasonAliasResolved}, ReasonNone, true
	}

	// 5. give up
	if w.ambiguous {
		return hit{}, ReasonAmbiguousCase, false
	}
	return hit{}, ReasonMissingTarget, false
}

// exists reports whether p is a file, or a directory served by one of the
// configured directory index files. Links written with a trailing separator
// only match directories.
func (r *Resolver) exists(p string, dir bool) bool {
	if !dir && r.tree.HasFile(p) {
		return true
	}
	if !r.tree.HasDir(p) {
		return false
	}
	for _, index := range r.rules.DirectoryIndex {
		if r.tree.HasFile(path.Join(p, index)) {
			return true
		}
	}
	return false
}

// foldCandidates returns the distinct real paths that equal p ignoring case:
// rename finals reached through a key or final, and entries on disk.
func (r *Resolver) foldCandidates(p string, dir bool) []string {
	seen := make(map[string]bool)
	if !dir {
		for _, final := range r.folded[tree.Fold(p)] {
			seen[final] = true
		}
	}
	for _, existing := range r.tree.FoldMatches(p) {
		if r.exists(existing, dir) {
			seen[existing] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// render writes the final path in the same style as the original link. A
// trailing separator survives only when the final target is a directory.
func (r *Resolver) render(class scanner.Class, l scanner.Link, final, fileDir string) string {
	dir := l.Dir && r.tree.HasDir(final)
	var out string
	if class == scanner.ClassRooted {
		out = "/" + final
		if dir && final != "" {
			out += "/"
		}
	} else {
		out = relativeTo(fileDir, final)
		if dir {
			if out == "." {
				out = "./"
			} else {
				out += "/"
			}
		} else if l.DotSlash && !strings.HasPrefix(out, "../") {
			out = "./" + out
		}
	}
	if l.Encoded {
		out = (&url.URL{Path: out}).EscapedPath()
	}
	if l.Backslash {
		out = strings.ReplaceAll(out, "/", `\`)
	}
	return out + l.Suffix
}

func relativeTo(fromDir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash("/"+fromDir), filepath.FromSlash("/"+target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
