package scanner

import (
	"net/url"
	"strings"
)

// Link is a token value split into the parts that resolution and checking
// look at.
type Link struct {
	Path      string // slash-separated, percent-decoded
	Suffix    string // query and fragment, verbatim
	Dir       bool   // written with a trailing separator
	Backslash bool
	Encoded   bool
	DotSlash  bool
}

func ParseLink(value string) Link {
	v := strings.TrimSpace(value)
	var l Link
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		l.Suffix = v[i:]
		v = v[:i]
	}
	l.Backslash = strings.Contains(v, `\`)
	v = strings.ReplaceAll(v, `\`, "/")
	l.DotSlash = strings.HasPrefix(v, "./")
	l.Dir = strings.HasSuffix(v, "/") || v == "." || strings.HasSuffix(v, "/.")
	if strings.Contains(v, "%") {
		if decoded, err := url.PathUnescape(v); err == nil {
			l.Encoded = decoded != v
			v = decoded
		}
	}
	l.Path = v
	return l
}
