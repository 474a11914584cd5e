package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/joseph-ayodele/construpro/internal/core/layout"
)

// PopplerLoader runs `pdftotext -bbox-layout` and reads word boxes from its XHTML.
type PopplerLoader struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

// NewPopplerLoader creates a PopplerLoader. bin defaults to "pdftotext" and a
// nil runner to ExecRunner.
func NewPopplerLoader(bin string, runner Runner, logger *slog.Logger) *PopplerLoader {
	if bin == "" {
		bin = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerLoader{bin: bin, runner: runner, logger: logger}
}

func (l *PopplerLoader) Open(ctx context.Context, data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, &LoadError{Op: "open", Err: ErrEmptyDocument}
	}

	f, err := os.CreateTemp("", "construpro-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			l.logger.Warn("failed to remove temp pdf", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp pdf: %w", err)
	}

	// pdftotext -bbox-layout -enc UTF-8 <path> -
	out, errb, err := l.runner.Run(ctx, l.bin, l.logger, "-bbox-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, &LoadError{Op: "pdftotext", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(errb)))}
	}

	pages, err := parseBBoxLayout(out)
	if err != nil {
		return nil, &LoadError{Op: "bbox", Err: err}
	}
	l.logger.Debug("pdf opened", "backend", "poppler", "pages", len(pages), "bytes", len(data))
	return &pagesDocument{pages: pages}, nil
}

// parseBBoxLayout reads <page width height> and <word xMin yMin xMax yMax>
// elements. Poppler measures y down from the top of the page; fragments get
// y = height - yMax so it grows upward like PDF user space.
func parseBBoxLayout(doc []byte) ([][]layout.Fragment, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var (
		pages  [][]layout.Fragment
		height float64
		inPage bool
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "page":
				height = attrFloat(n, "height")
				pages = append(pages, []layout.Fragment{})
				inPage = true
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				inPage = false
				return
			case "word":
				if !inPage {
					return
				}
				text := normalizeText(strings.TrimSpace(nodeText(n)))
				if text == "" {
					return
				}
				xMin, xMax := attrFloat(n, "xmin"), attrFloat(n, "xmax")
				pages[len(pages)-1] = append(pages[len(pages)-1], layout.Fragment{
					Text:  text,
					X:     xMin,
					Y:     height - attrFloat(n, "ymax"),
					Width: xMax - xMin,
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages in pdftotext output")
	}
	return pages, nil
}

// attrFloat reads a numeric attribute; the HTML parser lowercases names.
func attrFloat(n *html.Node, key string) float64 {
	for _, a := range n.Attr {
		if a.Key == key {
			v, err := strconv.ParseFloat(strings.TrimSpace(a.Val), 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
