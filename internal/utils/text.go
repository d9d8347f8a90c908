package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and converts s to Unicode NFC so
// that names typed with combining marks (e.g. "Ōtautahi" entered as O + U+0304)
// compare equal to the stored form.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
