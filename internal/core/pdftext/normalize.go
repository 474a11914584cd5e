package pdftext

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u2007", " ", "\u202f", " ", "\t", " ")

// normalizeText composes text to NFC and maps non-breaking spaces and tabs to
// plain spaces. Compatibility forms like "m²" are kept.
func normalizeText(s string) string {
	return spaceReplacer.Replace(norm.NFC.String(s))
}
