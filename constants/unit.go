package constants

import "strings"

const (
	UnitSquareMetre = "m²"
	UnitItem        = "item"
)

// unitTokens maps the unit column spellings we accept to their display form.
var unitTokens = map[string]string{
	"m²":   UnitSquareMetre,
	"m2":   UnitSquareMetre,
	"item": UnitItem,
	"ea":   "ea",
	"no":   "no",
}

// LookupUnit reports the display form of a unit column token (case-insensitive).
func LookupUnit(token string) (string, bool) {
	u, ok := unitTokens[strings.ToLower(strings.TrimSpace(token))]
	return u, ok
}
