package fields

import (
	"regexp"
	"strconv"
	"strings"
)

// Tier identifies which pass of the total-amount cascade produced a value.
type Tier int

const (
	TierNone Tier = iota
	// TierSummary is the SUB TOTAL, VAT, TOTAL block near the end of the document.
	TierSummary
	// TierLabelled is a TOTAL line matched by a labelled pattern or a bare amount on it.
	TierLabelled
	// TierLastAmount is the last currency-shaped amount anywhere in the document.
	TierLastAmount
)

func (t Tier) String() string {
	switch t {
	case TierSummary:
		return "summary"
	case TierLabelled:
		return "labelled"
	case TierLastAmount:
		return "last_amount"
	default:
		return "none"
	}
}

// TotalPattern is one labelled attempt at reading a TOTAL line.
// The first capture group holds the amount.
type TotalPattern struct {
	Label string
	Re    *regexp.Regexp
}

const amountGroup = `([\d,]+\.\d{2})`

func labelled(label, prefix string) TotalPattern {
	return TotalPattern{Label: label, Re: regexp.MustCompile(`(?i)` + prefix + `[^\d]*` + amountGroup)}
}

// DefaultTotalPatterns returns the labelled TOTAL patterns in priority order.
func DefaultTotalPatterns() []TotalPattern {
	patterns := []TotalPattern{
		{Label: "total", Re: regexp.MustCompile(`(?i)TOTAL\s*[^\d]*` + amountGroup)},
		{Label: "total_r", Re: regexp.MustCompile(`(?i)TOTAL\s*R\s*` + amountGroup)},
		{Label: "r_total", Re: regexp.MustCompile(`(?i)R\s*` + amountGroup + `\s*TOTAL`)},
		{Label: "amount_total", Re: regexp.MustCompile(`(?i)` + amountGroup + `\s*TOTAL`)},
		labelled("grand_total", `GRAND TOTAL`),
		labelled("total_amount", `TOTAL\s*AMOUNT`),
	}
	for _, kw := range []string{
		"INCL", "EXCL", "DUE", "PRICE", "COST", "INVOICE", "QUOTATION", "QUOTE",
		"ESTIMATE", "PAYMENT", "BALANCE", "OUTSTANDING", "PAYABLE",
	} {
		patterns = append(patterns, labelled("total_"+strings.ToLower(kw), `TOTAL\s*`+kw))
	}
	for _, kw := range []string{"PAYABLE", "DUE", "OUTSTANDING", "QUOTED", "ESTIMATED", "INVOICED"} {
		patterns = append(patterns, labelled("total_amount_"+strings.ToLower(kw), `TOTAL\s*AMOUNT\s*`+kw))
	}
	return patterns
}

var (
	currencyRe  = regexp.MustCompile(`R?\s*(\d[\d,\s]*\.\d{2})`)
	randRe      = regexp.MustCompile(`R\s*(\d[\d,\s]*\.\d{2})`)
	bareRe      = regexp.MustCompile(`(\d[\d,\s]*\.\d{2})`)
	separatorRe = regexp.MustCompile(`[,\s]`)
)

// TotalAmount returns the document total and the tier that found it, or
// (0, TierNone) when every tier misses. Lines are scanned bottom-up since the
// authoritative total is the last one printed.
func (e *Extractor) TotalAmount(lines []string) (float64, Tier) {
	if v, ok := e.summaryTotal(lines); ok {
		e.logger.Debug("total amount found", "tier", TierSummary.String(), "amount", v)
		return v, TierSummary
	}
	if v, label, ok := e.labelledTotal(lines); ok {
		e.logger.Debug("total amount found", "tier", TierLabelled.String(), "pattern", label, "amount", v)
		return v, TierLabelled
	}
	if v, ok := lastAmount(lines); ok {
		e.logger.Debug("total amount found", "tier", TierLastAmount.String(), "amount", v)
		return v, TierLastAmount
	}
	e.logger.Debug("total amount not found", "lines", len(lines))
	return 0, TierNone
}

// summaryTotal walks the trailing window upward. Once both a VAT line and a
// SUB TOTAL line have been passed, the next TOTAL line without SUB is read.
// The flags are only ever set.
func (e *Extractor) summaryTotal(lines []string) (float64, bool) {
	var foundVat, foundSub bool
	stop := max(0, len(lines)-e.cfg.TotalWindow)
	for i := len(lines) - 1; i >= stop; i-- {
		line := strings.ToUpper(strings.TrimSpace(lines[i]))
		switch {
		case strings.Contains(line, "TOTAL") && !strings.Contains(line, "SUB") && foundVat && foundSub:
			if v, ok := capture(currencyRe, line); ok {
				return v, true
			}
		case strings.Contains(line, "VAT"):
			foundVat = true
		case strings.Contains(line, "SUB TOTAL") || strings.Contains(line, "SUBTOTAL"):
			foundSub = true
		}
	}
	return 0, false
}

func (e *Extractor) labelledTotal(lines []string) (float64, string, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "TOTAL") ||
			strings.Contains(upper, "SUB TOTAL") ||
			strings.Contains(upper, "SUBTOTAL") ||
			strings.Contains(upper, "VAT") {
			continue
		}
		for _, p := range e.cfg.TotalPatterns {
			if v, ok := capture(p.Re, line); ok {
				return v, p.Label, true
			}
		}
		if v, ok := capture(currencyRe, line); ok {
			return v, "generic", true
		}
	}
	return 0, "", false
}

func lastAmount(lines []string) (float64, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if v, ok := capture(randRe, line); ok {
			return v, true
		}
		if v, ok := capture(bareRe, line); ok {
			return v, true
		}
	}
	return 0, false
}

// capture parses the first group of re's leftmost match as an amount,
// dropping thousands separators.
func capture(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if len(m) < 2 || m[1] == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(separatorRe.ReplaceAllString(m[1], ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
