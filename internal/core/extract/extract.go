// Package extract turns an invoice PDF into an ExtractedInvoiceRecord.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/construpro/internal/core/boq"
	"github.com/joseph-ayodele/construpro/internal/core/fields"
	"github.com/joseph-ayodele/construpro/internal/core/layout"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

// CodeParsingError is the AppError-style code carried by ParsingError.
const CodeParsingError = "PARSING_ERROR"

// ParsingError reports a document that could not be opened or read at all.
type ParsingError struct {
	Err error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s: failed to parse document: %v", CodeParsingError, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// Code returns CodeParsingError.
func (e *ParsingError) Code() string { return CodeParsingError }

// IsParsingError reports whether err carries a ParsingError.
func IsParsingError(err error) bool {
	var pe *ParsingError
	return errors.As(err, &pe)
}

// Options groups the tunables of every stage.
type Options struct {
	Layout layout.Options
	Fields fields.Config
	BoQ    boq.Config
}

// DefaultOptions returns the defaults of every stage.
func DefaultOptions() Options {
	return Options{
		Layout: layout.DefaultOptions(),
		Fields: fields.DefaultConfig(),
		BoQ:    boq.DefaultConfig(),
	}
}

// Result is one extraction plus the signals a consumer needs to judge it.
type Result struct {
	Record    entity.ExtractedInvoiceRecord
	Pages     int
	TotalTier fields.Tier
	// SchemaErr is set when the record does not satisfy the record schema.
	SchemaErr error
	Duration  time.Duration
}

// TotalMissing reports that no total was found; a zero total is never asserted.
func (r Result) TotalMissing() bool {
	return r.TotalTier == fields.TierNone || r.Record.TotalAmount == 0
}

// ItemsMissing reports that no BoQ rows were recovered.
func (r Result) ItemsMissing() bool { return len(r.Record.Items) == 0 }

// NeedsReview reports whether a person should check the record before use.
func (r Result) NeedsReview() bool {
	return r.TotalMissing() || r.ItemsMissing() || r.SchemaErr != nil
}

// Extractor runs loader, reconstructor and field/item extractors over one document.
// It holds no per-document state and is safe for concurrent use.
type Extractor struct {
	loader pdftext.Loader
	layout layout.Options
	fields *fields.Extractor
	items  *boq.Parser
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger falls back to slog.Default().
func NewExtractor(loader pdftext.Loader, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		loader: loader,
		layout: opts.Layout,
		fields: fields.New(opts.Fields, logger.With("stage", "fields")),
		items:  boq.New(opts.BoQ, logger.With("stage", "boq")),
		logger: logger,
	}
}

// Extract loads data and extracts the record. Only a document that cannot be
// loaded fails, with a ParsingError; field misses degrade to ""/0.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Result, error) {
	start := time.Now()

	doc, err := e.loader.Open(ctx, data)
	if err != nil {
		e.logger.Warn("document load failed", "bytes", len(data), "error", err)
		return Result{}, &ParsingError{Err: err}
	}

	b := layout.NewBuilder(e.layout)
	for page := 1; page <= doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		frags, err := doc.Fragments(ctx, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return Result{}, err
			}
			e.logger.Warn("page read failed", "page", page, "error", err)
			return Result{}, &ParsingError{Err: err}
		}
		b.AddPage(frags)
	}

	res := e.ExtractText(b.String())
	res.Pages = b.Pages()
	res.Duration = time.Since(start)
	e.logger.Info("invoice extracted",
		"pages", res.Pages,
		"items", len(res.Record.Items),
		"total_amount", res.Record.TotalAmount,
		"tier", res.TotalTier.String(),
		"needs_review", res.NeedsReview(),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ExtractText runs the extractors over already reconstructed text.
func (e *Extractor) ExtractText(text string) Result {
	lines := fields.SplitLines(text)
	total, tier := e.fields.TotalAmount(lines)
	items := e.items.Parse(lines)
	if items == nil {
		items = []entity.BoQLineItem{}
	}

	rec := entity.ExtractedInvoiceRecord{
		CompanyName:  e.fields.CompanyName(text, lines),
		ProjectTitle: e.fields.ProjectTitle(lines),
		ClientName:   e.fields.ClientName(lines),
		Location:     e.fields.Location(lines),
		TotalAmount:  total,
		Items:        items,
		RawText:      text,
	}
	res := Result{Record: rec, TotalTier: tier}
	if err := ValidateRecord(rec); err != nil {
		e.logger.Debug("record failed schema", "error", err)
		res.SchemaErr = err
	}
	return res
}
