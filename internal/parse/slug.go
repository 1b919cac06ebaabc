package parse

import (
	"strings"
	"unicode"
)

// Slug lowercases s and joins its runs of letters and digits with
// underscores. Letters outside ASCII are kept as they are.
func Slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
