package scanner

import (
	"strings"

	"relink/internal/core/config"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (s *Scanner) scanHTML(src []byte) ([]Token, error) {
	tree, err := s.parse(config.FormatHTML, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	h := &htmlWalk{s: s, src: src}
	if err := h.walk(tree.RootNode()); err != nil {
		return nil, err
	}
	if len(s.rules.HTMLPatterns) > 0 {
		h.tokens = append(h.tokens, regexTokens(src, s.rules.HTMLPatterns, h.comments, Context{Kind: ContextHTMLText})...)
	}
	return h.tokens, nil
}

type htmlWalk struct {
	s        *Scanner
	src      []byte
	tokens   []Token
	comments []span
}

func (h *htmlWalk) walk(n *sitter.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "comment":
		h.comments = append(h.comments, span{int(n.StartByte()), int(n.EndByte())})
		return nil
	case "attribute":
		return h.attribute(n)
	case "script_element":
		return h.embedded(n, true)
	case "style_element":
		return h.embedded(n, false)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if err := h.walk(n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func (h *htmlWalk) attribute(n *sitter.Node) error {
	var name, value *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "attribute_name":
			name = c
		case "attribute_value", "quoted_attribute_value":
			value = c
		}
	}
	if name == nil || value == nil {
		return nil
	}
	attr := name.Utf8Text(h.src)
	kind := h.s.rules.Attribute(attr)
	if kind == config.AttrNone {
		return nil
	}

	start, end := int(value.StartByte()), int(value.EndByte())
	quote := QuoteNone
	if value.Kind() == "quoted_attribute_value" {
		if end-start < 2 || h.src[start] != h.src[end-1] {
			return nil
		}
		quote = Quote(h.src[start])
		start++
		end--
	}

	switch kind {
	case config.AttrLink:
		start, end = trimSpan(h.src, start, end)
		h.tokens = append(h.tokens, newToken(h.src, start, end, quote, Context{Kind: ContextHTMLAttr, Attribute: attr}))
	case config.AttrSrcset:
		h.tokens = append(h.tokens, srcsetTokens(h.src, start, end, quote, attr)...)
	case config.AttrStyle:
		tokens, err := h.s.scanCSS(h.src[start:end])
		if err != nil {
			return err
		}
		for i := range tokens {
			tokens[i].Context.Attribute = attr
		}
		h.tokens = append(h.tokens, shift(tokens, start)...)
	}
	return nil
}

// embedded handles <script> and <style>: attributes of the start tag are
// scanned as usual and the raw body is scanned with the matching grammar.
func (h *htmlWalk) embedded(n *sitter.Node, script bool) error {
	body := config.FormatCSS
	if script {
		body = config.FormatJS
	}
	var raw *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "start_tag":
			if err := h.walk(c); err != nil {
				return err
			}
			if script {
				body = scriptFormat(scriptType(c, h.src))
			}
		case "raw_text":
			raw = c
		}
	}
	if raw == nil || body == "" {
		return nil
	}

	start, end := int(raw.StartByte()), int(raw.EndByte())
	var (
		tokens []Token
		err    error
	)
	switch body {
	case config.FormatJS:
		tokens, err = h.s.scanJS(h.src[start:end])
	case config.FormatJSON:
		tokens, err = h.s.scanJSON(h.src[start:end])
	case config.FormatCSS:
		tokens, err = h.s.scanCSS(h.src[start:end])
	}
	if err != nil {
		return err
	}
	h.tokens = append(h.tokens, shift(tokens, start)...)
	return nil
}

func scriptType(startTag *sitter.Node, src []byte) string {
	for i := uint(0); i < startTag.ChildCount(); i++ {
		attr := startTag.Child(i)
		if attr.Kind() != "attribute" {
			continue
		}
		var name, value string
		for j := uint(0); j < attr.ChildCount(); j++ {
			c := attr.Child(j)
			switch c.Kind() {
			case "attribute_name":
				name = c.Utf8Text(src)
			case "attribute_value":
				value = c.Utf8Text(src)
			case "quoted_attribute_value":
				value = strings.Trim(c.Utf8Text(src), `"'`)
			}
		}
		if strings.EqualFold(name, "type") {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

// scriptFormat maps a <script type> to the grammar used for its body; ""
// means the body is not scanned (templates, unknown types).
func scriptFormat(typ string) config.Format {
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	switch typ {
	case "", "module", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return config.FormatJS
	case "application/json", "application/ld+json", "importmap", "speculationrules", "application/manifest+json":
		return config.FormatJSON
	default:
		return ""
	}
}

// srcsetTokens splits a srcset value into one token per candidate URL. A
// candidate is a run of non-space bytes followed by optional descriptors.
func srcsetTokens(src []byte, start, end int, quote Quote, attr string) []Token {
	var out []Token
	ctx := Context{Kind: ContextHTMLSrcset, Attribute: attr}
	i := start
	for i < end {
		for i < end && (isSpace(src[i]) || src[i] == ',') {
			i++
		}
		if i >= end {
			break
		}
		urlStart := i
		for i < end && !isSpace(src[i]) {
			i++
		}
		urlEnd := i
		trailingComma := false
		for urlEnd > urlStart && src[urlEnd-1] == ',' {
			urlEnd--
			trailingComma = true
		}
		if urlEnd > urlStart {
			out = append(out, newToken(src, urlStart, urlEnd, quote, ctx))
		}
		if trailingComma {
			continue
		}
		depth := 0
		for i < end {
			c := src[i]
			i++
			if c == '(' {
				depth++
			} else if c == ')' && depth > 0 {
				depth--
			} else if c == ',' && depth == 0 {
				break
			}
		}
	}
	return out
}
