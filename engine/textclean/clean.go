// Package textclean normalizes free text before it reaches the generation provider.
package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonPrintable  = regexp.MustCompile(`[^\x20-\x7E\n\r\t]`)
	inlineSpace   = regexp.MustCompile(`[^\S\n]{2,}`)
	excessNewline = regexp.MustCompile(`\n{3,}`)
	urlToken      = regexp.MustCompile(`https?://[^\s<>"]+|www\.[^\s<>"]+`)
)

// Normalize applies NFKC composition, drops everything outside printable ASCII
// plus newline, carriage return and tab, collapses inline whitespace runs to a
// single space and newline runs of three or more to two, then trims.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := norm.NFKC.String(text)
	out = nonPrintable.ReplaceAllString(out, "")
	out = inlineSpace.ReplaceAllString(out, " ")
	out = excessNewline.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// NormalizeValue normalizes strings and string elements of sequences.
// Any other value, including non-string sequence elements, is returned unchanged.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return Normalize(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = Normalize(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			if s, ok := item.(string); ok {
				out[i] = Normalize(s)
				continue
			}
			out[i] = item
		}
		return out
	default:
		return v
	}
}

// DeduplicateURLs keeps the first occurrence of every distinct URL token and
// removes the literal text of later repeats. Everything else is left as is.
func DeduplicateURLs(text string) string {
	matches := urlToken.FindAllStringIndex(text, -1)
	if len(matches) < 2 {
		return text
	}
	seen := make(map[string]struct{}, len(matches))
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		token := text[m[0]:m[1]]
		if _, dup := seen[token]; !dup {
			seen[token] = struct{}{}
			continue
		}
		b.WriteString(text[last:m[0]])
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
