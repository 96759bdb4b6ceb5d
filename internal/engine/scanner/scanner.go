// Package scanner extracts link-like tokens from HTML, CSS, JavaScript and
// JSON content and classifies them.
package scanner

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"relink/internal/core/config"
	"relink/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Scanner is stateless apart from its parser pools and is safe for
// concurrent use.
type Scanner struct {
	rules *config.Rules
	pools *Pools
}

// New returns a Scanner. A nil pools allocates a fresh set.
func New(rules *config.Rules, pools *Pools) *Scanner {
	if pools == nil {
		pools = NewPools()
	}
	return &Scanner{rules: rules, pools: pools}
}

// Scan returns the tokens of content in ascending offset order with no
// overlapping spans. Non-UTF-8 content is rejected with CORRUPT_CONTENT.
func (s *Scanner) Scan(file string, content []byte, format config.Format) ([]Token, error) {
	if !utf8.Valid(content) {
		return nil, errors.AddContext(errors.New(errors.CodeCorruptContent, "content is not valid UTF-8"), errors.CtxPath, file)
	}

	var (
		tokens []Token
		err    error
	)
	switch format {
	case config.FormatHTML:
		tokens, err = s.scanHTML(content)
	case config.FormatCSS:
		tokens, err = s.scanCSS(content)
	case config.FormatJS:
		tokens, err = s.scanJS(content)
	case config.FormatJSON:
		tokens, err = s.scanJSON(content)
	default:
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeCorruptContent, "parse content"), errors.CtxPath, file)
	}

	tokens = dropOverlaps(tokens)
	for i := range tokens {
		tokens[i].File = file
		tokens[i].Class = Classify(tokens[i].Value, s.rules)
	}
	return tokens, nil
}

func (s *Scanner) parse(format config.Format, src []byte) (*sitter.Tree, error) {
	pool, err := s.pools.For(format)
	if err != nil {
		return nil, err
	}
	return pool.Parse(src)
}

// dropOverlaps keeps the earliest token at each position, preferring the
// longest when two start together.
func dropOverlaps(tokens []Token) []Token {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Start != tokens[j].Start {
			return tokens[i].Start < tokens[j].Start
		}
		return tokens[i].End-tokens[i].Start > tokens[j].End-tokens[j].Start
	})
	out := tokens[:0]
	lastEnd := -1
	for _, t := range tokens {
		if t.Start < lastEnd {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Start == t.Start {
			continue
		}
		out = append(out, t)
		lastEnd = t.End
	}
	return out
}

type span struct{ start, end int }

func inSpans(spans []span, pos int) bool {
	for _, sp := range spans {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

func shift(tokens []Token, offset int) []Token {
	for i := range tokens {
		tokens[i].Start += offset
		tokens[i].End += offset
	}
	return tokens
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func trimSpan(src []byte, start, end int) (int, int) {
	for start < end && isSpace(src[start]) {
		start++
	}
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return start, end
}

// quoteAround infers the quote style from the bytes that enclose a span.
func quoteAround(src []byte, start, end int) Quote {
	if start == 0 || end >= len(src) {
		return QuoteNone
	}
	before, after := src[start-1], src[end]
	if before != after {
		return QuoteNone
	}
	switch before {
	case '"', '\'', '`':
		return Quote(before)
	}
	return QuoteNone
}

func newToken(src []byte, start, end int, quote Quote, ctx Context) Token {
	raw := string(src[start:end])
	return Token{Start: start, End: end, Raw: raw, Value: raw, Quote: quote, Context: ctx}
}

// regexTokens applies patterns with a (?P<link>...) group to src, skipping
// matches that begin inside a skip span.
func regexTokens(src []byte, patterns []*regexp.Regexp, skip []span, ctx Context) []Token {
	var out []Token
	for _, re := range patterns {
		idx := re.SubexpIndex("link")
		if idx < 0 {
			continue
		}
		for _, m := range re.FindAllSubmatchIndex(src, -1) {
			start, end := m[2*idx], m[2*idx+1]
			if start < 0 || inSpans(skip, m[0]) {
				continue
			}
			start, end = trimSpan(src, start, end)
			out = append(out, newToken(src, start, end, quoteAround(src, start, end), ctx))
		}
	}
	return out
}
