// Package boq parses the bill-of-quantities table out of reconstructed invoice text.
package boq

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

// Config holds the table-recognition rules.
type Config struct {
	// HeaderKeywords must all appear (case-insensitive) on the header row.
	HeaderKeywords []string
	// Categories are section headers inside the table. The last one contained
	// in a line wins.
	Categories []string
	// StopPrefixes and StopContains end the table (case-insensitive).
	StopPrefixes []string
	StopContains []string
}

// DefaultConfig returns the rules for the quotes we ingest.
func DefaultConfig() Config {
	return Config{
		HeaderKeywords: []string{"description", "unit", "qty", "rate", "total"},
		Categories:     append([]string(nil), constants.BoQCategories...),
		StopPrefixes:   []string{"sub total"},
		StopContains:   []string{"vat", "total"},
	}
}

type state int

const (
	seekingHeader state = iota
	inItems
	done
)

var (
	columnSplitRe = regexp.MustCompile(`\s{2,}`)
	nonNumericRe  = regexp.MustCompile(`[^\d.]`)
	numberPrefix  = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)

	pcNoteRe      = regexp.MustCompile(`\(PC:[^)]+\)`)
	trailingDash  = regexp.MustCompile(`-\s*$`)
	leadingDash   = regexp.MustCompile(`^\s*-\s*`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Parser extracts BoQ line items.
type Parser struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Parser. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(s)
		}
		return out
	}
	cfg.HeaderKeywords = lower(cfg.HeaderKeywords)
	cfg.StopPrefixes = lower(cfg.StopPrefixes)
	cfg.StopContains = lower(cfg.StopContains)
	return &Parser{cfg: cfg, logger: logger}
}

// Parse scans lines for the items table and returns its rows in document
// order with ids from 1. Rows that do not end in three numbers are skipped.
func (p *Parser) Parse(lines []string) []entity.BoQLineItem {
	var (
		items    []entity.BoQLineItem
		category string
		st       = seekingHeader
	)
	for _, raw := range lines {
		if st == done {
			break
		}
		line := strings.TrimSpace(raw)
		if line == "" || line == "-" {
			continue
		}
		lower := strings.ToLower(line)

		if st == seekingHeader {
			if p.isHeader(lower) {
				st = inItems
			}
			continue
		}

		if p.isStop(lower) {
			p.logger.Debug("items table ended", "line", line)
			st = done
			continue
		}
		if c, ok := p.matchCategory(lower); ok {
			category = c
			p.logger.Debug("items category", "category", c)
			continue
		}

		item, ok := parseRow(line)
		if !ok {
			p.logger.Debug("items row skipped", "line", line)
			continue
		}
		item.ID = len(items) + 1
		item.Category = category
		if item.Category == "" {
			item.Category = constants.Uncategorized
		}
		items = append(items, item)
	}
	return items
}

func (p *Parser) isHeader(lower string) bool {
	for _, kw := range p.cfg.HeaderKeywords {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return len(p.cfg.HeaderKeywords) > 0
}

func (p *Parser) isStop(lower string) bool {
	for _, prefix := range p.cfg.StopPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, s := range p.cfg.StopContains {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func (p *Parser) matchCategory(lower string) (string, bool) {
	found, ok := "", false
	for _, c := range p.cfg.Categories {
		if strings.Contains(lower, strings.ToLower(c)) {
			found, ok = c, true
		}
	}
	return found, ok
}

// parseRow reads "description [unit] qty rate amount" split on 2+ spaces.
func parseRow(line string) (entity.BoQLineItem, bool) {
	var parts []string
	for _, s := range columnSplitRe.Split(line, -1) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) < 4 {
		return entity.BoQLineItem{}, false
	}

	lead, tail := parts[:len(parts)-3], parts[len(parts)-3:]
	var nums [3]float64
	for i, s := range tail {
		v, ok := parseNumber(s)
		if !ok {
			return entity.BoQLineItem{}, false
		}
		nums[i] = v
	}

	unit := constants.UnitItem
	description := strings.Join(lead, " ")
	unitIdx := -1
	for i, s := range lead {
		if u, ok := constants.LookupUnit(s); ok {
			unit, unitIdx = u, i
			break
		}
	}
	if unitIdx >= 0 {
		rest := make([]string, 0, len(lead)-1)
		rest = append(rest, lead[:unitIdx]...)
		rest = append(rest, lead[unitIdx+1:]...)
		description = strings.Join(rest, " ")
	} else if strings.Contains(description, constants.UnitSquareMetre) {
		unit = constants.UnitSquareMetre
		description = strings.TrimSpace(strings.ReplaceAll(description, constants.UnitSquareMetre, ""))
	}

	description = cleanDescription(description)
	if description == "" {
		return entity.BoQLineItem{}, false
	}
	return entity.BoQLineItem{
		Description: description,
		Unit:        unit,
		Quantity:    nums[0],
		Rate:        nums[1],
		Amount:      nums[2],
	}, true
}

// parseNumber strips everything but digits and dots, then reads the longest
// leading decimal number.
func parseNumber(s string) (float64, bool) {
	m := numberPrefix.FindString(nonNumericRe.ReplaceAllString(s, ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cleanDescription(s string) string {
	s = pcNoteRe.ReplaceAllString(s, "")
	s = trailingDash.ReplaceAllString(s, "")
	s = leadingDash.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
