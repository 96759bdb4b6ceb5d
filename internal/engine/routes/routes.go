// Package routes builds the immutable route table from server alias and
// redirect directives found in the project root.
package routes

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"relink/internal/core/config"
	"relink/internal/shared/observability"
)

type Kind int

const (
	KindAlias Kind = iota
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindAlias:
		return "alias"
	case KindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Rule maps a normalized source path ("/a/b", "/" for the root) to a target
// as written in the directive file.
type Rule struct {
	Source    string
	Target    string
	Kind      Kind
	Order     int
	File      string
	Line      int
	Directive string
}

// External reports whether the target is served by another host.
func (r Rule) External() bool {
	lower := strings.ToLower(r.Target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(r.Target, "//")
}

// TargetPath is the target without query string or fragment.
func (r Rule) TargetPath() string {
	t := r.Target
	if i := strings.IndexAny(t, "?#"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Warning describes a directive line that produced no rule.
type Warning struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", w.File, w.Line, w.Reason, w.Text)
}

// Source is one directive file's text.
type Source struct {
	Name string
	Text string
}

// Table is an ordered, immutable list of rules.
type Table struct {
	rules    []Rule
	bySource map[string]int
}

// Empty returns a table with no rules.
func Empty() *Table {
	return &Table{bySource: map[string]int{}}
}

// Load reads every configured directive file from root. Missing files are
// skipped; unreadable files produce a warning and contribute no rules.
func Load(root string, rules *config.Rules, logger *slog.Logger) (*Table, []Warning) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		sources  []Source
		warnings []Warning
	)
	for _, name := range rules.RouteFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			w := Warning{File: name, Reason: "unreadable directive file", Text: err.Error()}
			logger.Warn("skipping directive file", "file", name, "error", err)
			warnings = append(warnings, w)
			continue
		}
		sources = append(sources, Source{Name: name, Text: string(data)})
	}

	table, parseWarnings := Parse(sources, rules)
	for _, w := range parseWarnings {
		logger.Warn("skipping directive", "file", w.File, "line", w.Line, "reason", w.Reason, "text", w.Text)
	}
	for _, r := range table.rules {
		logger.Debug("route", "source", r.Source, "target", r.Target, "kind", r.Kind.String(), "file", r.File, "line", r.Line)
	}
	observability.RouteRules.Set(float64(table.Len()))
	observability.DirectiveWarningsTotal.Add(float64(len(parseWarnings)))
	return table, append(warnings, parseWarnings...)
}

// Parse builds a table from directive texts in order.
func Parse(sources []Source, rules *config.Rules) (*Table, []Warning) {
	t := Empty()
	var warnings []Warning
	for _, src := range sources {
		for i, line := range strings.Split(src.Text, "\n") {
			line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rule, reason, ok := parseLine(line, rules)
			if !ok {
				if reason != "" {
					warnings = append(warnings, Warning{File: src.Name, Line: i + 1, Text: line, Reason: reason})
				}
				continue
			}
			rule.File = src.Name
			rule.Line = i + 1
			rule.Order = len(t.rules)
			if _, seen := t.bySource[rule.Source]; !seen {
				t.bySource[rule.Source] = len(t.rules)
			}
			t.rules = append(t.rules, rule)
		}
	}
	return t, warnings
}

// parseLine returns ok=false with an empty reason for lines that are
// intentionally ignored.
func parseLine(line string, rules *config.Rules) (Rule, string, bool) {
	for _, d := range rules.Directives {
		m := d.Re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		source := d.Source
		if idx := d.Re.SubexpIndex("source"); idx >= 0 && m[idx] != "" {
			source = m[idx]
		}
		target := strings.TrimSpace(m[d.Re.SubexpIndex("target")])
		switch {
		case target == "" || target == "-":
			return Rule{}, "directive has no substitution target", false
		case strings.Contains(target, "$"):
			return Rule{}, "target uses a back-reference", false
		}
		kind := KindAlias
		if d.Kind == config.KindRedirect {
			kind = KindRedirect
		}
		return Rule{
			Source:    NormalizeSource(source),
			Target:    target,
			Kind:      kind,
			Directive: d.Name,
		}, "", true
	}

	keyword := strings.Fields(line)[0]
	if rules.Passthrough(keyword) {
		return Rule{}, "", false
	}
	return Rule{}, "unrecognized directive", false
}

// NormalizeSource converts a source or request path into the table key form.
func NormalizeSource(source string) string {
	s := strings.TrimSpace(source)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.ReplaceAll(s, `\`, "/"), "/")
	if s == "" {
		return "/"
	}
	return "/" + s
}

// Match returns the first rule, in declaration order, whose source equals
// the normalized path.
func (t *Table) Match(path string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	idx, ok := t.bySource[NormalizeSource(path)]
	if !ok {
		return Rule{}, false
	}
	return t.rules[idx], true
}

// Rules returns a copy of the rules in declaration order.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	return append([]Rule(nil), t.rules...)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
