package expr

import (
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// Normalize rewrites catalog text into the canonical form the parser reads:
// '^' becomes '**', a bare '=' becomes '==', and identifiers are lower-cased.
// Normalizing twice yields the same text.
//
// '^' is always read as exponentiation; catalog text has no string literals
// or other use for it.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "^", "**")
	text = doubleEquals(text)
	return identPattern.ReplaceAllStringFunc(text, strings.ToLower)
}

// doubleEquals turns every '=' that is not part of <=, >=, == or != into ==.
func doubleEquals(text string) string {
	if !strings.Contains(text, "=") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 4)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '=' {
			b.WriteByte(c)
			continue
		}
		prevOp := i > 0 && strings.IndexByte("<>=!", text[i-1]) >= 0
		nextEq := i+1 < len(text) && text[i+1] == '='
		if prevOp || nextEq {
			b.WriteByte(c)
			continue
		}
		b.WriteString("==")
	}
	return b.String()
}
