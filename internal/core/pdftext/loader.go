// Package pdftext opens PDF documents and yields positioned text fragments per page.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/layout"
)

// ErrEmptyDocument is returned when there are no bytes to open.
var ErrEmptyDocument = errors.New("empty document")

// LoadError reports input that cannot be opened or read as a PDF.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pdftext: %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader opens a PDF byte buffer.
type Loader interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened PDF. Pages are numbered from 1.
type Document interface {
	PageCount() int
	Fragments(ctx context.Context, page int) ([]layout.Fragment, error)
}

// New builds the loader selected by cfg.Backend, bounded by cfg.LoaderTimeout.
func New(cfg common.ExtractionConfig, logger *slog.Logger) (Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var l Loader
	switch cfg.Backend {
	case "", "native":
		l = NewNativeLoader(logger)
	case "poppler":
		l = NewPopplerLoader(cfg.Pdftotext, nil, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown pdf backend "+cfg.Backend, common.ErrInvalidInput)
	}
	if cfg.LoaderTimeout > 0 {
		l = WithTimeout(l, cfg.LoaderTimeout)
	}
	return l, nil
}

// WithTimeout bounds Open and every Fragments call on the returned document by d.
func WithTimeout(next Loader, d time.Duration) Loader {
	return &timeoutLoader{next: next, d: d}
}

type timeoutLoader struct {
	next Loader
	d    time.Duration
}

func (l *timeoutLoader) Open(ctx context.Context, data []byte) (Document, error) {
	doc, err := withDeadline(ctx, l.d, "open", func(ctx context.Context) (Document, error) {
		return l.next.Open(ctx, data)
	})
	if err != nil {
		return nil, err
	}
	return &timeoutDocument{next: doc, d: l.d}, nil
}

type timeoutDocument struct {
	next Document
	d    time.Duration
}

func (d *timeoutDocument) PageCount() int { return d.next.PageCount() }

func (d *timeoutDocument) Fragments(ctx context.Context, page int) ([]layout.Fragment, error) {
	return withDeadline(ctx, d.d, fmt.Sprintf("page %d", page), func(ctx context.Context) ([]layout.Fragment, error) {
		return d.next.Fragments(ctx, page)
	})
}

// withDeadline runs fn in its own goroutine so a parser that ignores ctx
// cannot hold the caller past the deadline.
func withDeadline[T any](ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, &LoadError{Op: op, Err: ctx.Err()}
	}
}

// pagesDocument serves fragments that were all read up front.
type pagesDocument struct {
	pages [][]layout.Fragment
}

func (d *pagesDocument) PageCount() int { return len(d.pages) }

func (d *pagesDocument) Fragments(ctx context.Context, page int) ([]layout.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > len(d.pages) {
		return nil, &LoadError{Op: "fragments", Err: fmt.Errorf("page %d out of range [1,%d]", page, len(d.pages))}
	}
	return d.pages[page-1], nil
}
