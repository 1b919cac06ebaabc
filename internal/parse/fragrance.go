package parse

import (
	"regexp"
	"strings"
)

var fragranceRe = regexp.MustCompile(`(?i)fragrance\s+code:\s*([^\s,;|]+)`)

// FragranceCode extracts the value of a "Fragrance Code: <value>" marker from
// free-form notes. It returns "" when the marker is absent.
func FragranceCode(notes string) string {
	m := fragranceRe.FindStringSubmatch(notes)
	if len(m) != 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
