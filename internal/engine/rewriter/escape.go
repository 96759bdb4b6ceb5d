package rewriter

import (
	"strings"

	"relink/internal/engine/scanner"
)

// EditFor builds the edit that replaces tok with newText, escaped so the
// surrounding syntax still parses the same way.
func EditFor(tok scanner.Token, newText string) Edit {
	return Edit{Start: tok.Start, End: tok.End, Text: Escape(tok, newText)}
}

var (
	htmlDoubleQuoted = strings.NewReplacer(`"`, "&quot;")
	htmlSingleQuoted = strings.NewReplacer(`'`, "&#39;")
	htmlUnquoted     = strings.NewReplacer(" ", "%20", "\t", "%09", `"`, "%22", `'`, "%27", "<", "%3C", ">", "%3E", "=", "%3D", "`", "%60")
	srcsetCandidate  = strings.NewReplacer(" ", "%20", "\t", "%09", ",", "%2C", `"`, "%22", `'`, "%27")
	cssUnquoted      = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", `"`, "%22", `'`, "%27")
)

// Escape encodes text for the context tok was found in.
func Escape(tok scanner.Token, text string) string {
	switch tok.Context.Kind {
	case scanner.ContextHTMLAttr, scanner.ContextHTMLText:
		switch tok.Quote {
		case scanner.QuoteDouble:
			return htmlDoubleQuoted.Replace(text)
		case scanner.QuoteSingle:
			return htmlSingleQuoted.Replace(text)
		default:
			return htmlUnquoted.Replace(text)
		}
	case scanner.ContextHTMLSrcset:
		return srcsetCandidate.Replace(text)
	case scanner.ContextCSS:
		switch tok.Quote {
		case scanner.QuoteDouble:
			return strings.ReplaceAll(text, `"`, `\"`)
		case scanner.QuoteSingle:
			return strings.ReplaceAll(text, `'`, `\'`)
		default:
			return cssUnquoted.Replace(text)
		}
	case scanner.ContextJSString, scanner.ContextJSONString:
		return escapeString(tok, text)
	default:
		return text
	}
}

func escapeString(tok scanner.Token, text string) string {
	quote := tok.Quote
	if tok.Context.Kind == scanner.ContextJSONString {
		quote = scanner.QuoteDouble
	}
	var b strings.Builder
	slashes := strings.Contains(tok.Raw, `\/`)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '/' && slashes:
			b.WriteString(`\/`)
		case quote != scanner.QuoteNone && c == byte(quote):
			b.WriteByte('\\')
			b.WriteByte(c)
		case quote == scanner.QuoteBacktick && c == '$' && i+1 < len(text) && text[i+1] == '{':
			b.WriteString(`\$`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
