package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/entity"
	"github.com/joseph-ayodele/construpro/internal/export"
)

type output struct {
	Record      entity.ExtractedInvoiceRecord `json:"record"`
	Pages       int                           `json:"pages"`
	TotalTier   string                        `json:"total_tier"`
	NeedsReview bool                          `json:"needs_review"`
	SchemaError string                        `json:"schema_error,omitempty"`
	DurationMS  int64                         `json:"duration_ms"`
}

func main() {
	var (
		textMode = flag.Bool("text", false, "treat the input as already reconstructed text")
		xlsxOut  = flag.String("xlsx", "", "also write the BoQ workbook to this path")
		showRaw  = flag.Bool("raw", false, "include the reconstructed text in the output")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: extract-invoice [--text] [--raw] [--xlsx out.xlsx] <file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.Log, true)

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Error("read input", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	opts, err := extract.OptionsFromConfig(cfg.Extraction)
	if err != nil {
		logger.Error("failed to load extraction tables", "error", err)
		os.Exit(1)
	}

	var res extract.Result
	if *textMode {
		res = extract.NewExtractor(nil, opts, logger).ExtractText(extract.CleanText(string(data)))
	} else {
		loader, err := pdftext.New(cfg.Extraction, logger)
		if err != nil {
			logger.Error("failed to build document loader", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err = extract.NewExtractor(loader, opts, logger).Extract(ctx, data)
		if err != nil {
			logger.Error("extraction failed", "path", flag.Arg(0), "error", err)
			os.Exit(1)
		}
	}

	if !*showRaw {
		res.Record.RawText = ""
	}
	out := output{
		Record:      res.Record,
		Pages:       res.Pages,
		TotalTier:   res.TotalTier.String(),
		NeedsReview: res.NeedsReview(),
		DurationMS:  res.Duration.Milliseconds(),
	}
	if res.SchemaErr != nil {
		out.SchemaError = res.SchemaErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode output", "error", err)
		os.Exit(1)
	}

	if *xlsxOut != "" {
		xlsx, err := export.ExportBoQXLSX(res.Record)
		if err != nil {
			logger.Error("export.xlsx.failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, xlsx, 0o644); err != nil {
			logger.Error("failed to write output file", "path", *xlsxOut, "error", err)
			os.Exit(1)
		}
		logger.Info("wrote workbook", "path", *xlsxOut, "items", len(res.Record.Items))
	}
}
