package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/fields"
)

// Tables is the YAML form of the matching tables. Empty lists and zero
// numbers keep the defaults.
//
//	vendor_signatures:
//	  - marker: BUILDING SERVICES
//	    name: PTP BUILDING SERVICES
//	known_titles: [Bathroom Renovation]
//	boq:
//	  categories: [Demolishing, Paint]
type Tables struct {
	VendorSignatures []VendorSignatureYAML `yaml:"vendor_signatures"`
	KnownTitles      []string              `yaml:"known_titles"`
	HeaderLines      int                   `yaml:"header_lines"`
	TotalWindow      int                   `yaml:"total_window"`
	BoQ              BoQTables             `yaml:"boq"`
}

type VendorSignatureYAML struct {
	Marker string `yaml:"marker"`
	Name   string `yaml:"name"`
}

type BoQTables struct {
	HeaderKeywords []string `yaml:"header_keywords"`
	Categories     []string `yaml:"categories"`
	StopPrefixes   []string `yaml:"stop_prefixes"`
	StopContains   []string `yaml:"stop_contains"`
}

// LoadTables reads a tables file.
func LoadTables(path string) (Tables, error) {
	var t Tables
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tables %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("parse tables %s", path), err)
	}
	for i, vs := range t.VendorSignatures {
		if vs.Marker == "" || vs.Name == "" {
			return t, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("vendor_signatures[%d] needs marker and name", i), common.ErrInvalidInput)
		}
	}
	return t, nil
}

// Apply overlays t on opts.
func (t Tables) Apply(opts Options) Options {
	if len(t.VendorSignatures) > 0 {
		sigs := make([]fields.VendorSignature, 0, len(t.VendorSignatures))
		for _, vs := range t.VendorSignatures {
			sigs = append(sigs, fields.VendorSignature{Marker: vs.Marker, Name: vs.Name})
		}
		opts.Fields.VendorSignatures = sigs
	}
	if len(t.KnownTitles) > 0 {
		opts.Fields.KnownTitles = t.KnownTitles
	}
	if t.HeaderLines > 0 {
		opts.Fields.HeaderLines = t.HeaderLines
	}
	if t.TotalWindow > 0 {
		opts.Fields.TotalWindow = t.TotalWindow
	}
	if len(t.BoQ.HeaderKeywords) > 0 {
		opts.BoQ.HeaderKeywords = t.BoQ.HeaderKeywords
	}
	if len(t.BoQ.Categories) > 0 {
		opts.BoQ.Categories = t.BoQ.Categories
	}
	if len(t.BoQ.StopPrefixes) > 0 {
		opts.BoQ.StopPrefixes = t.BoQ.StopPrefixes
	}
	if len(t.BoQ.StopContains) > 0 {
		opts.BoQ.StopContains = t.BoQ.StopContains
	}
	return opts
}

// OptionsFromConfig builds extractor options from the extraction settings,
// applying the tables file when one is configured.
func OptionsFromConfig(cfg common.ExtractionConfig) (Options, error) {
	opts := DefaultOptions()
	if cfg.LineTolerance > 0 {
		opts.Layout.Tolerance = cfg.LineTolerance
	}
	opts.Layout.ColumnGap = cfg.ColumnGap
	if cfg.TablesFile == "" {
		return opts, nil
	}
	t, err := LoadTables(cfg.TablesFile)
	if err != nil {
		return opts, err
	}
	return t.Apply(opts), nil
}
