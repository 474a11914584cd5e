// Package fields recovers individual header fields from reconstructed invoice text.
//
// Every extractor returns the first match of an ordered list of attempts and
// degrades to "" (or 0 for amounts) when nothing matches.
package fields

import (
	"log/slog"
	"regexp"
	"strings"
)

// VendorSignature maps a marker found anywhere in the text to a canonical company name.
type VendorSignature struct {
	Marker string
	Name   string
}

// Config holds the data tables the extractors match against.
type Config struct {
	VendorSignatures []VendorSignature
	// KnownTitles are project titles recognised when a line equals them exactly.
	KnownTitles []string
	// HeaderLines is how many leading lines are considered for the company name.
	HeaderLines int
	// TotalWindow is how many trailing lines the summary-block scan covers.
	TotalWindow int
	// TotalPatterns are tried in order against candidate TOTAL lines.
	TotalPatterns []TotalPattern
}

// DefaultConfig returns the tables tuned for the quotes we ingest.
func DefaultConfig() Config {
	return Config{
		VendorSignatures: []VendorSignature{
			{Marker: "BUILDING SERVICES", Name: "PTP BUILDING SERVICES"},
		},
		KnownTitles:   []string{"Bathroom Renovation"},
		HeaderLines:   5,
		TotalWindow:   30,
		TotalPatterns: DefaultTotalPatterns(),
	}
}

var (
	documentKindRe = regexp.MustCompile(`(?i)invoice|quotation|estimate`)
	renovationRe   = regexp.MustCompile(`(?i)renovation`)

	projectRe     = regexp.MustCompile(`(?i)project:`)
	projectNameRe = regexp.MustCompile(`(?i)project name:`)
	clientRe      = regexp.MustCompile(`(?i)client:|customer:|bill to:`)
	attentionRe   = regexp.MustCompile(`(?i)attention:`)
	addressRe     = regexp.MustCompile(`(?i)address:`)
	locationRe    = regexp.MustCompile(`(?i)location:|site:|address:`)
)

// Extractor runs the field heuristics.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeaderLines <= 0 {
		cfg.HeaderLines = 5
	}
	if cfg.TotalWindow <= 0 {
		cfg.TotalWindow = 30
	}
	if cfg.TotalPatterns == nil {
		cfg.TotalPatterns = DefaultTotalPatterns()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// SplitLines splits reconstructed text the way every extractor consumes it.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// CompanyName returns a vendor's canonical name when its signature appears
// anywhere in the text, else the first non-empty header line that is not a
// document-kind caption, trimmed.
func (e *Extractor) CompanyName(text string, lines []string) string {
	for _, sig := range e.cfg.VendorSignatures {
		if strings.Contains(text, sig.Marker) {
			e.logger.Debug("company from vendor signature", "marker", sig.Marker)
			return sig.Name
		}
	}
	n := min(e.cfg.HeaderLines, len(lines))
	// A whitespace-only line counts as non-empty and yields "".
	for _, line := range lines[:n] {
		if line != "" && !documentKindRe.MatchString(line) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// ProjectTitle returns a known title when a line equals one, else the first
// line naming a project or a renovation.
func (e *Extractor) ProjectTitle(lines []string) string {
	for _, title := range e.cfg.KnownTitles {
		for _, line := range lines {
			if strings.TrimSpace(line) == title {
				return title
			}
		}
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "project:"):
			return afterMarker(projectRe, line)
		case strings.Contains(lower, "project name:"):
			return afterMarker(projectNameRe, line)
		case renovationRe.MatchString(line):
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// ClientName prefers an "Attention:" line, then client/customer/bill-to lines.
func (e *Extractor) ClientName(lines []string) string {
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "attention:") {
			continue
		}
		if v := afterMarker(attentionRe, line); v != "" {
			return v
		}
		break
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "client:") || strings.Contains(lower, "customer:") || strings.Contains(lower, "bill to:") {
			return afterMarker(clientRe, line)
		}
	}
	return ""
}

// Location prefers an "Address:" line, falling back to the line after it when
// the marker ends its line; then location/site/address lines.
func (e *Extractor) Location(lines []string) string {
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "address:") {
			continue
		}
		if i+1 < len(lines) {
			if v := afterMarker(addressRe, line); v != "" {
				return v
			}
			return strings.TrimSpace(lines[i+1])
		}
		break
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "location:") || strings.Contains(lower, "site:") || strings.Contains(lower, "address:") {
			return afterMarker(locationRe, line)
		}
	}
	return ""
}

// afterMarker returns the trimmed text between the first marker occurrence and
// the next one (or the end of the line).
func afterMarker(re *regexp.Regexp, line string) string {
	parts := re.Split(line, 3)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
