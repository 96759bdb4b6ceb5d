package scanner

import (
	"regexp"
	"strings"

	"relink/internal/core/config"
)

// Class is the classification of a link token. Exactly one applies.
type Class int

const (
	ClassIgnored Class = iota
	ClassAnchor
	ClassDataURI
	ClassExternal
	ClassRooted
	ClassRelative
)

func (c Class) String() string {
	switch c {
	case ClassIgnored:
		return "ignored-prefix"
	case ClassAnchor:
		return "anchor-only"
	case ClassDataURI:
		return "data-uri"
	case ClassExternal:
		return "external"
	case ClassRooted:
		return "internal-absolute-rooted"
	case ClassRelative:
		return "internal-relative"
	default:
		return "unknown"
	}
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Internal reports whether the class is resolved against the project tree.
func (c Class) Internal() bool {
	return c == ClassRooted || c == ClassRelative
}

// Quote is the delimiter that surrounds a token in its source.
type Quote byte

const (
	QuoteNone     Quote = 0
	QuoteDouble   Quote = '"'
	QuoteSingle   Quote = '\''
	QuoteBacktick Quote = '`'
)

type ContextKind int

const (
	ContextHTMLAttr ContextKind = iota
	ContextHTMLSrcset
	ContextHTMLText
	ContextCSS
	ContextJSString
	ContextJSONString
)

func (k ContextKind) String() string {
	switch k {
	case ContextHTMLAttr:
		return "html-attribute"
	case ContextHTMLSrcset:
		return "html-srcset"
	case ContextHTMLText:
		return "html-text"
	case ContextCSS:
		return "css"
	case ContextJSString:
		return "js-string"
	case ContextJSONString:
		return "json-string"
	default:
		return "unknown"
	}
}

type Context struct {
	Kind      ContextKind
	Attribute string
}

// Token is one link-like occurrence. Start and End are byte offsets of Raw in
// the file. Value is the decoded link text; it differs from Raw only when the
// source string used escape sequences.
type Token struct {
	File    string
	Start   int
	End     int
	Raw     string
	Value   string
	Quote   Quote
	Context Context
	Class   Class
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// Classify assigns exactly one Class to a link value.
func Classify(value string, rules *config.Rules) Class {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	switch {
	case v == "":
		return ClassIgnored
	case strings.HasPrefix(v, "#"):
		return ClassAnchor
	case strings.HasPrefix(lower, "data:"):
		return ClassDataURI
	case rules.IgnoredPrefix(v):
		return ClassIgnored
	case strings.HasPrefix(lower, "http:"), strings.HasPrefix(lower, "https:"), strings.HasPrefix(v, "//"):
		return ClassExternal
	case schemeRe.MatchString(v):
		return ClassExternal
	case strings.HasPrefix(v, "/"), strings.HasPrefix(v, `\`):
		return ClassRooted
	default:
		return ClassRelative
	}
}
