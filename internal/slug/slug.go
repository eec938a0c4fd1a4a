// Package slug derives the URL identifiers of a city.
//
// Rules for Clean:
//  1. Lower-case everything.
//  2. Any run of runes outside [a-z0-9] becomes one "-".
//  3. Trim leading and trailing "-".
//
// Full slugs are the category prefix plus the clean segment and are what the
// registry stores. Short slugs are only ever rendered into route tables.
package slug

import (
	"fmt"
	"strings"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
)

// ShortLen is the maximum length of a short slug.
const ShortLen = 10

// Clean converts a name into lower-kebab ASCII. It may return "".
func Clean(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastWasDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Full returns the current-scheme slug for name in cat.
// A name without any ASCII letter or digit cannot be slugged.
func Full(name string, cat category.Category) (string, error) {
	clean := Clean(name)
	if clean == "" {
		return "", fmt.Errorf("%w: name %q has no letters or digits to build a slug from", apperr.ErrValidation, name)
	}
	return cat.SlugPrefix + clean, nil
}

// Short strips everything but ASCII letters and digits, lower-cases, and
// keeps the first ShortLen characters. Collisions are not checked.
func Short(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == ShortLen {
				break
			}
		}
	}
	return b.String()
}

// Legacy returns the retired bike scheme {clean}-rent-bike-in-{clean}.
func Legacy(name string) string {
	clean := Clean(name)
	return clean + category.Bike.LegacyInfix + clean
}

// IsLegacy reports whether s is in the retired scheme of cat.
func IsLegacy(s string, cat category.Category) bool {
	if !cat.HasLegacyScheme() {
		return false
	}
	return strings.Contains(s, cat.LegacyInfix) && !strings.HasPrefix(s, cat.SlugPrefix)
}

// StripPrefix returns the bare clean segment of s. Slugs that carry neither
// the current prefix nor the legacy infix are returned unchanged.
func StripPrefix(s string, cat category.Category) string {
	if rest, ok := strings.CutPrefix(s, cat.SlugPrefix); ok {
		return rest
	}
	if IsLegacy(s, cat) {
		_, after, _ := strings.Cut(s, cat.LegacyInfix)
		return after
	}
	return s
}
