package constants

import (
	"strings"
)

// Uncategorized is attached to BoQ items that appear before any category header.
const Uncategorized = "Uncategorized"

// BoQCategories are the section headers recognised inside an items table,
// spelled exactly as they appear on the quotes we ingest.
var BoQCategories = []string{
	"Demolishing",
	"Ceiling Installation",
	"Brickwork",
	"Tiling installation",
	"Plumbing (supply and installation)",
	"Electrical Installation",
	"Paint",
}

type InvoiceCategory string

const (
	Labor        InvoiceCategory = "Labor"
	Materials    InvoiceCategory = "Materials"
	Equipment    InvoiceCategory = "Equipment"
	Fixtures     InvoiceCategory = "Fixtures"
	Finishes     InvoiceCategory = "Finishes"
	Electrical   InvoiceCategory = "Electrical"
	Plumbing     InvoiceCategory = "Plumbing"
	HVAC         InvoiceCategory = "HVAC"
	Structural   InvoiceCategory = "Structural"
	SiteWork     InvoiceCategory = "Site Work"
	PermitsFees  InvoiceCategory = "Permits & Fees"
	OtherInvoice InvoiceCategory = "Other"
)

var allInvoiceCategories = []InvoiceCategory{
	Labor,
	Materials,
	Equipment,
	Fixtures,
	Finishes,
	Electrical,
	Plumbing,
	HVAC,
	Structural,
	SiteWork,
	PermitsFees,
	OtherInvoice,
}

// Canonicalize maps a BoQ section header (or a free-form label) onto the
// invoice category taxonomy used by generated invoices.
func Canonicalize(input string) (InvoiceCategory, bool) {
	if input == "" {
		return OtherInvoice, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]InvoiceCategory{
		"demolishing":                        SiteWork,
		"ceiling installation":               Fixtures,
		"brickwork":                          Structural,
		"tiling installation":                Finishes,
		"plumbing (supply and installation)": Plumbing,
		"electrical installation":            Electrical,
		"paint":                              Finishes,
		"labour":                             Labor,
		"permits":                            PermitsFees,
		"fees":                               PermitsFees,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allInvoiceCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return OtherInvoice, false
}
