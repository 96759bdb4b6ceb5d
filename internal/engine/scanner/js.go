package scanner

import (
	"regexp"
	"strings"

	"relink/internal/core/config"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// scanJS yields string literals whose whole value looks like an asset path.
// Comments and regex literals never produce tokens.
func (s *Scanner) scanJS(src []byte) ([]Token, error) {
	tree, err := s.parse(config.FormatJS, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []Token
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "comment", "regex":
			return
		case "string", "template_string":
			if t, ok := stringToken(n, src, s.rules.JSAsset, ContextJSString); ok {
				out = append(out, t)
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// scanJSON yields string values (never object keys) that look like paths.
func (s *Scanner) scanJSON(src []byte) ([]Token, error) {
	tree, err := s.parse(config.FormatJSON, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []Token
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "comment":
			return
		case "pair":
			walk(n.ChildByFieldName("value"))
			return
		case "string":
			if t, ok := stringToken(n, src, s.rules.JSONPath, ContextJSONString); ok {
				out = append(out, t)
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

func stringToken(n *sitter.Node, src []byte, match *regexp.Regexp, kind ContextKind) (Token, bool) {
	start, end := int(n.StartByte()), int(n.EndByte())
	if end-start < 2 || src[start] != src[end-1] {
		return Token{}, false
	}
	escaped := false
	for i := uint(0); i < n.ChildCount(); i++ {
		switch n.Child(i).Kind() {
		case "template_substitution":
			return Token{}, false
		case "escape_sequence":
			escaped = true
		}
	}

	quote := Quote(src[start])
	t := newToken(src, start+1, end-1, quote, Context{Kind: kind})
	if escaped {
		value, ok := unescapeString(t.Raw)
		if !ok {
			return Token{}, false
		}
		t.Value = value
	}
	if !match.MatchString(t.Value) {
		return Token{}, false
	}
	return t, true
}

// unescapeString decodes the escapes that can appear in a path literal. Any
// other escape means the string is not treated as a link.
func unescapeString(raw string) (string, bool) {
	if !strings.Contains(raw, `\`) {
		return raw, true
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(raw) {
			return "", false
		}
		i++
		switch raw[i] {
		case '/', '\\', '"', '\'', '`':
			b.WriteByte(raw[i])
		default:
			return "", false
		}
	}
	return b.String(), true
}
