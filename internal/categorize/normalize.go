package categorize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.English)

// Slug normalizes a model-produced name into a stable directory-safe form:
// lowercased, spaces and dashes folded to single underscores, everything
// outside [a-z0-9_] dropped.
func Slug(name string) string {
	lowered := lowerCaser.String(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ', r == '-', r == '_', r == '/', r == '.':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
