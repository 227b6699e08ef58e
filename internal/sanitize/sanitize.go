// Package sanitize normalizes text tokens scraped from the upstream reports.
package sanitize

import (
	"strconv"
	"strings"
)

// replacements fixes byte sequences that the report pages serve mis-encoded
var replacements = strings.NewReplacer(
	"â€™", "'",
	"â€˜", "'",
	"â€œ", `"`,
	"â€\u009d", `"`,
	"â€“", "-",
)

// bengaliDigits maps Bengali decimal digits to their ASCII form
var bengaliDigits = strings.NewReplacer(
	"০", "0", "১", "1", "২", "2", "৩", "3", "৪", "4",
	"৫", "5", "৬", "6", "৭", "7", "৮", "8", "৯", "9",
)

// Token is a sanitized cell. It holds a number when the raw text was made only of decimal digits.
type Token struct {
	Text     string
	Number   int64
	IsNumber bool
}

// String returns the cleaned text of the token
func (t Token) String() string {
	return t.Text
}

// Sanitize applies the fixed replacement table and converts all-digit text to a number.
// Input that matches nothing is returned unchanged as text.
func Sanitize(raw string) Token {
	s := replacements.Replace(raw)

	digits := bengaliDigits.Replace(s)
	if isDigits(digits) {
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			return Token{Text: digits, Number: n, IsNumber: true}
		}
	}

	return Token{Text: s}
}

// All sanitizes every element of raw, preserving order
func All(raw []string) []Token {
	tokens := make([]Token, 0, len(raw))
	for _, r := range raw {
		tokens = append(tokens, Sanitize(r))
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
