// Package naming canonicalizes admin-entered city names.
package naming

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/citypages/internal/apperr"
)

// MaxLen bounds a normalized name in runes.
const MaxLen = 80

// Normalize trims raw, collapses inner whitespace, upper-cases the first rune
// and lower-cases the rest. Names are restricted to letters, digits, spaces
// and the punctuation - ' . because they are spliced into generated source.
func Normalize(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	joined := strings.Join(fields, " ")

	for _, r := range joined {
		if !allowed(r) {
			return "", fmt.Errorf("%w: name contains forbidden character %q", apperr.ErrValidation, r)
		}
	}
	if utf8.RuneCountInString(joined) > MaxLen {
		return "", fmt.Errorf("%w: name longer than %d characters", apperr.ErrValidation, MaxLen)
	}

	first, size := utf8.DecodeRuneInString(joined)
	return string(unicode.ToUpper(first)) + strings.ToLower(joined[size:]), nil
}

func allowed(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return true
	case r == ' ', r == '-', r == '\'', r == '.':
		return true
	}
	return false
}

// Identifier keeps only the ASCII letters and digits of a normalized name so
// it can be used as a file name stem and a component identifier.
func Identifier(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id == "" {
		return "", fmt.Errorf("%w: name %q has no ASCII letters or digits", apperr.ErrValidation, name)
	}
	if id[0] >= '0' && id[0] <= '9' {
		return "", fmt.Errorf("%w: name %q must start with a letter", apperr.ErrValidation, name)
	}
	return id, nil
}
