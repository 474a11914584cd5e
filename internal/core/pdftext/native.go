package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/construpro/internal/core/layout"
)

// NativeLoader reads text runs with their positions using a pure-Go PDF parser.
type NativeLoader struct {
	logger *slog.Logger
}

// NewNativeLoader creates a NativeLoader. A nil logger falls back to slog.Default().
func NewNativeLoader(logger *slog.Logger) *NativeLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeLoader{logger: logger}
}

func (l *NativeLoader) Open(ctx context.Context, data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return nil, &LoadError{Op: "open", Err: ErrEmptyDocument}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "open", Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, &LoadError{Op: "open", Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &LoadError{Op: "open", Err: err}
	}
	n := r.NumPage()
	l.logger.Debug("pdf opened", "pages", n, "bytes", len(data))
	return &nativeDocument{r: r, pages: n, logger: l.logger}, nil
}

type nativeDocument struct {
	r      *pdf.Reader
	pages  int
	logger *slog.Logger
}

func (d *nativeDocument) PageCount() int { return d.pages }

func (d *nativeDocument) Fragments(ctx context.Context, page int) (frags []layout.Fragment, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.pages {
		return nil, &LoadError{Op: "fragments", Err: fmt.Errorf("page %d out of range [1,%d]", page, d.pages)}
	}
	defer func() {
		if r := recover(); r != nil {
			frags, err = nil, &LoadError{Op: fmt.Sprintf("page %d", page), Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	p := d.r.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}
	frags = glyphRuns(p.Content().Text)
	d.logger.Debug("page fragments", "page", page, "fragments", len(frags))
	return frags, nil
}

// avgGlyphEm approximates a glyph advance, in ems, for fonts that carry no
// width table (the standard 14 fonts usually do not).
const avgGlyphEm = 0.5

type glyphRun struct {
	sb       strings.Builder
	x, y     float64
	lastX    float64
	end      float64
	size     float64
	runes    int
	measured bool
}

func (r *glyphRun) fragment() (layout.Fragment, bool) {
	text := strings.TrimSpace(normalizeText(r.sb.String()))
	if text == "" {
		return layout.Fragment{}, false
	}
	width := r.end - r.x
	if !r.measured {
		width = float64(r.runes) * avgGlyphEm * r.size
	}
	return layout.Fragment{Text: text, X: r.x, Y: r.y, Width: width}, true
}

// glyphRuns merges per-glyph text into runs: a glyph continues the current
// run when it sits on the same baseline and starts where the previous glyph
// ended, give or take a fraction of the font size.
func glyphRuns(glyphs []pdf.Text) []layout.Fragment {
	var (
		frags []layout.Fragment
		cur   *glyphRun
	)
	flush := func() {
		if cur == nil {
			return
		}
		if f, ok := cur.fragment(); ok {
			frags = append(frags, f)
		}
		cur = nil
	}
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if g.S == "\n" {
			// TJ arrays end with a synthetic newline glyph.
			flush()
			continue
		}
		size := math.Max(g.FontSize, 1)
		if cur != nil {
			gap := g.X - cur.end
			contiguous := math.Abs(g.Y-cur.y) < 0.5 &&
				g.X >= cur.lastX-0.01 &&
				gap <= 0.3*size
			if !contiguous {
				flush()
			} else if cur.measured && gap > 0.1*size {
				// Kerned word gap with no space glyph.
				cur.sb.WriteByte(' ')
			}
		}
		if cur == nil {
			cur = &glyphRun{x: g.X, y: g.Y, end: g.X, size: size}
		}
		cur.sb.WriteString(g.S)
		cur.runes += utf8.RuneCountInString(g.S)
		cur.lastX = g.X
		if g.W > 0 {
			cur.measured = true
			cur.end = g.X + g.W
		} else {
			cur.end = math.Max(cur.end, g.X)
		}
	}
	flush()
	return frags
}
