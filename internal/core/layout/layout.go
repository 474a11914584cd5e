// Package layout rebuilds reading-order text from positioned page fragments.
package layout

import (
	"sort"
	"strings"
)

// DefaultTolerance is the vertical distance, in page units, within which
// fragments are considered to share a line.
const DefaultTolerance = 5.0

// Fragment is one run of text at a page coordinate. Y grows upward (PDF user
// space). Width is zero when the loader cannot measure it.
type Fragment struct {
	Text  string
	X     float64
	Y     float64
	Width float64
}

// Options tune line reconstruction.
type Options struct {
	// Tolerance is the band height for grouping fragments into one line.
	Tolerance float64
	// ColumnGap, when positive, joins fragments separated by at least this
	// horizontal gap with two spaces instead of one. Needs Fragment.Width.
	ColumnGap float64
}

// DefaultOptions returns the reading-order rules used for invoices.
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance}
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// Line is a set of fragments sharing a band, ordered left to right.
type Line struct {
	Y         float64
	Fragments []Fragment
}

// Text joins the line's fragments.
func (l Line) Text(columnGap float64) string {
	var sb strings.Builder
	for i, f := range l.Fragments {
		if i > 0 {
			sb.WriteString(separator(l.Fragments[i-1], f, columnGap))
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}

func separator(prev, cur Fragment, columnGap float64) string {
	if columnGap > 0 && prev.Width > 0 && cur.X-(prev.X+prev.Width) >= columnGap {
		return "  "
	}
	return " "
}

// Lines groups one page's fragments into lines, top to bottom.
//
// Fragments are stable-sorted by descending Y and scanned in that order. A
// fragment starts a new line when it sits Tolerance or more below the
// fragment scanned just before it, so a slowly drifting baseline stays on one
// line. Within a line fragments are stable-sorted by ascending X.
func Lines(frags []Fragment, opts Options) []Line {
	if len(frags) == 0 {
		return nil
	}
	tol := opts.tolerance()

	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []Line
	start := 0
	lastY := sorted[0].Y
	emit := func(end int) {
		band := append([]Fragment(nil), sorted[start:end]...)
		sort.SliceStable(band, func(i, j int) bool { return band[i].X < band[j].X })
		lines = append(lines, Line{Y: sorted[start].Y, Fragments: band})
		start = end
	}
	for i := 1; i < len(sorted); i++ {
		if lastY-sorted[i].Y >= tol {
			emit(i)
		}
		lastY = sorted[i].Y
	}
	emit(len(sorted))
	return lines
}

// PageText renders one page: its lines separated by newlines, followed by the
// blank-line page separator.
func PageText(frags []Fragment, opts Options) string {
	var sb strings.Builder
	for i, l := range Lines(frags, opts) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.Text(opts.ColumnGap))
	}
	sb.WriteString("\n\n")
	return sb.String()
}

// Builder accumulates pages in order into one reconstructed document.
type Builder struct {
	opts Options
	sb   strings.Builder
	n    int
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// AddPage appends the next page.
func (b *Builder) AddPage(frags []Fragment) {
	b.sb.WriteString(PageText(frags, b.opts))
	b.n++
}

// Pages returns how many pages were added.
func (b *Builder) Pages() int { return b.n }

// String returns the reconstructed document.
func (b *Builder) String() string { return b.sb.String() }

// Reconstruct renders all pages in order.
func Reconstruct(pages [][]Fragment, opts Options) string {
	b := NewBuilder(opts)
	for _, p := range pages {
		b.AddPage(p)
	}
	return b.String()
}
