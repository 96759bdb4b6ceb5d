package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Format identifies a scannable content format.
type Format string

const (
	FormatHTML Format = "html"
	FormatCSS  Format = "css"
	FormatJS   Format = "js"
	FormatJSON Format = "json"
)

// AttrKind tells the HTML scanner how to read an attribute value.
type AttrKind int

const (
	AttrNone AttrKind = iota
	AttrLink
	AttrSrcset
	AttrStyle
)

// CompiledDirective is a route directive with its regex compiled.
type CompiledDirective struct {
	Name   string
	Kind   string
	Source string
	Re     *regexp.Regexp
}

type formatMatcher struct {
	format Format
	globs  []glob.Glob
}

// Rules is the immutable, compiled form of Config shared by every component
// of a run. It is safe for concurrent use.
type Rules struct {
	Root           string
	DirectoryIndex []string
	IgnorePrefixes []string
	HTMLPatterns   []*regexp.Regexp
	CSSPatterns    []*regexp.Regexp
	JSAsset        *regexp.Regexp
	JSONPath       *regexp.Regexp
	Directives     []CompiledDirective
	RouteFiles     []string
	MaxDepth       int
	ResolveCase    string
	CheckCase      string

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	formats      []formatMatcher
	attrs        []glob.Glob
	srcsetAttrs  []glob.Glob
	passthrough  map[string]bool
}

// Compile validates cfg and builds its Rules.
func Compile(cfg *Config) (*Rules, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	r := &Rules{
		Root:           cfg.Project.Root,
		DirectoryIndex: append([]string(nil), cfg.Project.DirectoryIndex...),
		IgnorePrefixes: lowerAll(cfg.Scan.IgnorePrefixes),
		RouteFiles:     append([]string(nil), cfg.Routes.Files...),
		MaxDepth:       cfg.Routes.MaxDepth,
		ResolveCase:    cfg.Case.Resolve,
		CheckCase:      cfg.Case.Check,
		passthrough:    make(map[string]bool, len(cfg.Routes.Passthrough)),
	}

	var err error
	if r.excludeDirs, err = compileGlobs(cfg.Project.ExcludeDirs, false); err != nil {
		return nil, err
	}
	if r.excludeFiles, err = compileGlobs(cfg.Project.ExcludeFiles, false); err != nil {
		return nil, err
	}
	if r.attrs, err = compileGlobs(cfg.Scan.HTML.Attributes, true); err != nil {
		return nil, err
	}
	if r.srcsetAttrs, err = compileGlobs(cfg.Scan.HTML.SrcsetAttributes, true); err != nil {
		return nil, err
	}

	formats := []struct {
		format Format
		globs  []string
	}{
		{FormatHTML, cfg.Formats.HTML},
		{FormatCSS, cfg.Formats.CSS},
		{FormatJS, cfg.Formats.JS},
		{FormatJSON, cfg.Formats.JSON},
	}
	for _, f := range formats {
		globs, err := compileGlobs(f.globs, true)
		if err != nil {
			return nil, err
		}
		r.formats = append(r.formats, formatMatcher{format: f.format, globs: globs})
	}

	if r.HTMLPatterns, err = compileRegexps(cfg.Scan.HTML.Patterns); err != nil {
		return nil, err
	}
	if r.CSSPatterns, err = compileRegexps(cfg.Scan.CSS.Patterns); err != nil {
		return nil, err
	}
	if r.JSAsset, err = regexp.Compile(cfg.Scan.JS.AssetPattern); err != nil {
		return nil, err
	}
	if r.JSONPath, err = regexp.Compile(cfg.Scan.JSON.PathPattern); err != nil {
		return nil, err
	}

	for _, d := range cfg.Routes.Directives {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("directive %q: %w", d.Name, err)
		}
		r.Directives = append(r.Directives, CompiledDirective{
			Name:   d.Name,
			Kind:   d.Kind,
			Source: d.Source,
			Re:     re,
		})
	}
	for _, word := range cfg.Routes.Passthrough {
		r.passthrough[strings.ToLower(word)] = true
	}
	return r, nil
}

// MustDefaultRules compiles DefaultConfig and panics on failure.
func MustDefaultRules() *Rules {
	r, err := Compile(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// FormatOf reports the content format for a file base name.
func (r *Rules) FormatOf(base string) (Format, bool) {
	lower := strings.ToLower(base)
	for _, fm := range r.formats {
		for _, g := range fm.globs {
			if g.Match(lower) {
				return fm.format, true
			}
		}
	}
	return "", false
}

// ExcludedDir matches a directory by base name or by root-relative path.
func (r *Rules) ExcludedDir(rel, base string) bool {
	return matchAny(r.excludeDirs, rel, base)
}

func (r *Rules) ExcludedFile(rel, base string) bool {
	return matchAny(r.excludeFiles, rel, base)
}

// Attribute classifies an HTML attribute name.
func (r *Rules) Attribute(name string) AttrKind {
	lower := strings.ToLower(name)
	if lower == "style" {
		return AttrStyle
	}
	for _, g := range r.srcsetAttrs {
		if g.Match(lower) {
			return AttrSrcset
		}
	}
	for _, g := range r.attrs {
		if g.Match(lower) {
			return AttrLink
		}
	}
	return AttrNone
}

// Passthrough reports whether a directive keyword is known and intentionally ignored.
func (r *Rules) Passthrough(keyword string) bool {
	return r.passthrough[strings.ToLower(keyword)]
}

// IgnoredPrefix reports whether value starts with a configured ignore prefix.
func (r *Rules) IgnoredPrefix(value string) bool {
	lower := strings.ToLower(value)
	for _, p := range r.IgnorePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func matchAny(globs []glob.Glob, rel, base string) bool {
	for _, g := range globs {
		if g.Match(base) || (rel != base && g.Match(rel)) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string, lower bool) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if lower {
			p = strings.ToLower(p)
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func compileRegexps(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
