package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/layout"
)

const bboxSample = `<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title></title></head>
<body>
<doc>
  <page width="595.0" height="842.0">
    <flow><block xMin="50" yMin="40" xMax="200" yMax="60">
      <line xMin="50" yMin="40" xMax="200" yMax="60">
        <word xMin="50.0" yMin="40.0" xMax="90.0" yMax="52.0">ACME</word>
        <word xMin="95.0" yMin="40.5" xMax="120.0" yMax="52.5">CO</word>
      </line>
      <line><word xMin="50" yMin="100" xMax="80" yMax="112">m²</word></line>
    </block></flow>
  </page>
  <page width="595.0" height="842.0">
  </page>
</doc>
</body>
</html>`

type stubRunner struct {
	out   []byte
	err   error
	calls [][]string
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.err != nil {
		return nil, []byte("Syntax Error: couldn't read xref"), s.err
	}
	return s.out, nil, nil
}

func TestPopplerLoader_Open(t *testing.T) {
	runner := &stubRunner{out: []byte(bboxSample)}
	l := NewPopplerLoader("pdftotext", runner, nil)

	doc, err := l.Open(context.Background(), []byte("%PDF-1.4 stub"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount() = %d, want 2", doc.PageCount())
	}

	got, err := doc.Fragments(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fragments(1) error = %v", err)
	}
	want := []layout.Fragment{
		{Text: "ACME", X: 50, Y: 790, Width: 40},
		{Text: "CO", X: 95, Y: 789.5, Width: 25},
		{Text: "m²", X: 50, Y: 730, Width: 30},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Fragments(1) mismatch (-want +got):\n%s", diff)
	}

	empty, err := doc.Fragments(context.Background(), 2)
	if err != nil || len(empty) != 0 {
		t.Fatalf("Fragments(2) = %v, %v", empty, err)
	}
	if _, err := doc.Fragments(context.Background(), 3); err == nil {
		t.Fatal("Fragments(3) expected out of range error")
	}

	if len(runner.calls) != 1 || runner.calls[0][1] != "-bbox-layout" {
		t.Fatalf("runner calls = %v", runner.calls)
	}

	text := layout.Reconstruct([][]layout.Fragment{got}, layout.DefaultOptions())
	if text != "ACME CO\nm²\n\n" {
		t.Fatalf("Reconstruct() = %q", text)
	}
}

func TestPopplerLoader_RunnerFailure(t *testing.T) {
	l := NewPopplerLoader("", &stubRunner{err: errors.New("exit status 1")}, nil)
	_, err := l.Open(context.Background(), []byte("not a pdf"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Open() error = %v, want LoadError", err)
	}
	if !strings.Contains(err.Error(), "xref") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestLoaders_EmptyInput(t *testing.T) {
	loaders := map[string]Loader{
		"native":  NewNativeLoader(nil),
		"poppler": NewPopplerLoader("", &stubRunner{}, nil),
	}
	for name, l := range loaders {
		t.Run(name, func(t *testing.T) {
			_, err := l.Open(context.Background(), nil)
			if !errors.Is(err, ErrEmptyDocument) {
				t.Fatalf("Open(nil) error = %v, want ErrEmptyDocument", err)
			}
		})
	}
}

func TestNativeLoader_Garbage(t *testing.T) {
	_, err := NewNativeLoader(nil).Open(context.Background(), []byte("definitely not a pdf"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Open() error = %v, want LoadError", err)
	}
}

type slowLoader struct{ delay time.Duration }

func (s slowLoader) Open(ctx context.Context, _ []byte) (Document, error) {
	time.Sleep(s.delay)
	return &pagesDocument{pages: [][]layout.Fragment{nil}}, nil
}

func TestWithTimeout(t *testing.T) {
	l := WithTimeout(slowLoader{delay: 200 * time.Millisecond}, 20*time.Millisecond)
	_, err := l.Open(context.Background(), []byte("x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Open() error = %v, want deadline exceeded", err)
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Open() error = %T, want *LoadError", err)
	}

	fast := WithTimeout(slowLoader{}, time.Second)
	doc, err := fast.Open(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("PageCount() = %d", doc.PageCount())
	}
}

func TestNew(t *testing.T) {
	if _, err := New(common.ExtractionConfig{Backend: "native", LoaderTimeout: time.Second}, nil); err != nil {
		t.Fatalf("New(native) error = %v", err)
	}
	if _, err := New(common.ExtractionConfig{Backend: "poppler"}, nil); err != nil {
		t.Fatalf("New(poppler) error = %v", err)
	}
	if _, err := New(common.ExtractionConfig{Backend: "tesseract"}, nil); err == nil {
		t.Fatal("New(tesseract) expected error")
	}
}

func TestFirstPage_Invalid(t *testing.T) {
	if _, err := FirstPage(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("FirstPage(nil) error = %v", err)
	}
	var le *LoadError
	if _, err := FirstPage([]byte("%PDF-1.7 broken")); !errors.As(err, &le) {
		t.Fatalf("FirstPage(broken) error = %v, want LoadError", err)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := map[string]string{
		"Floor\u00a0tiles": "Floor tiles",
		"m\u00b2":          "m\u00b2",
		"e\u0301":          "\u00e9",
		"a\tb":             "a b",
	}
	for in, want := range tests {
		if got := normalizeText(in); got != want {
			t.Errorf("normalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

type textRun struct {
	x, y float64
	s    string
}

// buildPDF writes an uncompressed PDF with one Helvetica text object per run,
// one page per entry in pages.
func buildPDF(t *testing.T, pages ...[]textRun) []byte {
	t.Helper()
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 pages, 3 font, then a page/content pair per page.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, runs := range pages {
		var content strings.Builder
		for _, r := range runs {
			fmt.Fprintf(&content, "BT /F1 12 Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", r.x, r.y, r.s)
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestNativeLoader_TextPDF(t *testing.T) {
	data := buildPDF(t,
		[]textRun{
			{x: 40, y: 700, s: "ACME CO"},
			{x: 40, y: 651, s: "Floor tiles"},
			{x: 200, y: 651, s: "240.00"},
		},
		[]textRun{{x: 40, y: 700, s: "page two"}},
	)

	doc, err := NewNativeLoader(nil).Open(context.Background(), data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount() = %d, want 2", doc.PageCount())
	}

	got, err := doc.Fragments(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fragments(1) error = %v", err)
	}
	// Helvetica carries no width table here, so widths are estimated at
	// half an em (12pt) per rune.
	want := []layout.Fragment{
		{Text: "ACME CO", X: 40, Y: 700, Width: 42},
		{Text: "Floor tiles", X: 40, Y: 651, Width: 66},
		{Text: "240.00", X: 200, Y: 651, Width: 36},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Fragments(1) mismatch (-want +got):\n%s", diff)
	}

	if text := layout.PageText(got, layout.DefaultOptions()); text != "ACME CO\nFloor tiles 240.00\n\n" {
		t.Errorf("PageText() = %q", text)
	}
	if text := layout.PageText(got, layout.Options{ColumnGap: 10}); text != "ACME CO\nFloor tiles  240.00\n\n" {
		t.Errorf("PageText(column gap) = %q", text)
	}

	second, err := doc.Fragments(context.Background(), 2)
	if err != nil || len(second) != 1 || second[0].Text != "page two" {
		t.Fatalf("Fragments(2) = %v, %v", second, err)
	}
}

func TestFirstPage_TextPDF(t *testing.T) {
	data := buildPDF(t,
		[]textRun{{x: 40, y: 700, s: "Quote"}},
		[]textRun{{x: 40, y: 700, s: "Terms"}},
	)
	if n, err := PageCount(data); err != nil || n != 2 {
		t.Fatalf("PageCount(source) = %d, %v", n, err)
	}

	first, err := FirstPage(data)
	if err != nil {
		t.Fatalf("FirstPage() error = %v", err)
	}
	if !bytes.HasPrefix(first, []byte("%PDF-")) {
		t.Fatalf("FirstPage() output is not a PDF: %q", first[:min(len(first), 16)])
	}
	n, err := PageCount(first)
	if err != nil {
		t.Fatalf("PageCount(first) error = %v", err)
	}
	if n != 1 {
		t.Fatalf("PageCount(first) = %d, want 1", n)
	}
}

func TestGlyphRuns(t *testing.T) {
	glyphs := []pdf.Text{
		{FontSize: 10, X: 10, Y: 500, W: 5, S: "Q"},
		{FontSize: 10, X: 15, Y: 500, W: 5, S: "t"},
		{FontSize: 10, X: 22, Y: 500, W: 5, S: "y"}, // kerned word gap
		{FontSize: 10, X: 27, Y: 500, W: 5, S: "\n"},
		{FontSize: 10, X: 27, Y: 500, W: 5, S: "2"},
		{FontSize: 10, X: 80, Y: 500, W: 5, S: "5"},
		{FontSize: 10, X: 85, Y: 503, W: 3, S: "²"},
	}
	want := []layout.Fragment{
		{Text: "Qt y", X: 10, Y: 500, Width: 17},
		{Text: "2", X: 27, Y: 500, Width: 5},
		{Text: "5", X: 80, Y: 500, Width: 5},
		{Text: "²", X: 85, Y: 503, Width: 3},
	}
	if diff := cmp.Diff(want, glyphRuns(glyphs)); diff != "" {
		t.Fatalf("glyphRuns() mismatch (-want +got):\n%s", diff)
	}
}
