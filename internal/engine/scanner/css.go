package scanner

import (
	"relink/internal/core/config"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (s *Scanner) scanCSS(src []byte) ([]Token, error) {
	comments, err := s.cssComments(src)
	if err != nil {
		return nil, err
	}
	return regexTokens(src, s.rules.CSSPatterns, comments, Context{Kind: ContextCSS}), nil
}

func (s *Scanner) cssComments(src []byte) ([]span, error) {
	tree, err := s.parse(config.FormatCSS, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var spans []span
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "comment", "js_comment":
			spans = append(spans, span{int(n.StartByte()), int(n.EndByte())})
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return spans, nil
}
