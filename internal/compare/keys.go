package compare

import (
	"strings"
	"unicode"
)

// NormalizeKey reduces a product number to its longest run of ASCII digits, so that
// "VI-3423" and "3423" share a key. When two runs tie in length the first wins.
// Values without digits are returned trimmed; empty input gives an empty key.
func NormalizeKey(productNumber string) string {
	s := strings.TrimSpace(productNumber)
	if s == "" {
		return ""
	}

	best := ""
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start > len(best) {
				best = s[start:i]
			}
			start = -1
		}
	}

	if best == "" {
		return s
	}
	return best
}

// keyOf returns the normalized key of a possibly-null product number
func keyOf(productNumber *string) string {
	if productNumber == nil {
		return ""
	}
	return NormalizeKey(*productNumber)
}

// NormalizeText upper-cases text and collapses everything but letters and digits
// into single spaces.
func NormalizeText(input string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToUpper(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Tokenize splits normalized text into tokens of two or more characters
func Tokenize(input string) []string {
	parts := strings.Fields(NormalizeText(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}
