// Package textutil holds the small string helpers shared by the export and
// import pipelines.
package textutil

import (
	"strings"
	"unicode"
)

// SubstringBetween returns the first occurrence of start, the text after it up
// to end, and end itself. With omit set only the inner text is returned.
// An absent start yields "". When end never follows start the remainder of s
// is taken as the inner text.
func SubstringBetween(start, end, s string, omit bool) string {
	if start == "" {
		return ""
	}
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	inner := rest
	if j := strings.Index(rest, end); end != "" && j >= 0 {
		inner = rest[:j]
	}
	if omit {
		return inner
	}
	return start + inner + end
}

// ReplaceFirst replaces only the first occurrence of old in s.
func ReplaceFirst(s, old, new string) string {
	if old == "" {
		return s
	}
	return strings.Replace(s, old, new, 1)
}

// SanitizeTitle turns a post title into a lowercase, dash separated slug.
func SanitizeTitle(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// TitleCase converts dashes to spaces and upper-cases the first letter of
// every word, leaving the rest of each word untouched.
func TitleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
