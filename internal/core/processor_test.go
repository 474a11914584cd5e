package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/layout"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

var invoiceLines = []string{
	"ACME CO",
	"Project: Kitchen Refit",
	"Attention: Jane Doe",
	"",
	"DESCRIPTION   UNIT   QTY   RATE   TOTAL",
	"Tiling installation",
	"Floor tiles   m²   5   240.00   1200.00",
	"SUB TOTAL   1200.00",
	"TOTAL   1380.00",
}

func linesToFragments(lines []string) []layout.Fragment {
	var frags []layout.Fragment
	y := 800.0
	for _, l := range lines {
		x := 40.0
		for _, col := range strings.Split(l, "   ") {
			if col == "" {
				continue
			}
			frags = append(frags, layout.Fragment{Text: col, X: x, Y: y, Width: float64(len(col)) * 6})
			x += 120
		}
		y -= 20
	}
	return frags
}

type fakeLoader struct{ pages [][]layout.Fragment }

func (l fakeLoader) Open(context.Context, []byte) (pdftext.Document, error) {
	return fakeDoc(l), nil
}

type fakeDoc fakeLoader

func (d fakeDoc) PageCount() int { return len(d.pages) }

func (d fakeDoc) Fragments(_ context.Context, page int) ([]layout.Fragment, error) {
	return d.pages[page-1], nil
}

type savedFile struct {
	JobKey, Name, MimeType string
	Data                   []byte
}

type memFiles struct {
	mu    sync.Mutex
	saved []savedFile
	err   error
}

func (m *memFiles) Save(_ context.Context, jobKey, name, mimeType string, data []byte) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, savedFile{jobKey, name, mimeType, data})
	return uuid.New(), nil
}

func (m *memFiles) Get(context.Context, string, uuid.UUID) (entity.FileHistoryEntry, error) {
	return entity.FileHistoryEntry{}, common.ErrNotFound
}

func (m *memFiles) List(context.Context, string) ([]entity.FileHistoryEntry, error) { return nil, nil }

type memJobs struct {
	created []entity.Job
}

func (m *memJobs) Create(_ context.Context, job entity.Job) (entity.Job, error) {
	m.created = append(m.created, job)
	return job, nil
}

func (m *memJobs) Get(context.Context, uuid.UUID) (entity.Job, error) {
	return entity.Job{}, common.ErrNotFound
}

func (m *memJobs) List(context.Context) ([]entity.Job, error) { return m.created, nil }

func (m *memJobs) AddInvoice(_ context.Context, _ uuid.UUID, inv entity.Invoice) (entity.Invoice, error) {
	return inv, nil
}

func newTestProcessor(lines []string, files *memFiles, jobsRepo *memJobs) *Processor {
	loader := fakeLoader{pages: [][]layout.Fragment{linesToFragments(lines)}}
	opts := extract.DefaultOptions()
	opts.Layout.ColumnGap = 10
	p := NewProcessor(nil, extract.NewExtractor(loader, opts, nil), files, jobsRepo)
	p.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	p.firstPage = func(data []byte) ([]byte, error) { return []byte("%PDF-page1"), nil }
	if files == nil {
		p.filesRepo = nil
	}
	if jobsRepo == nil {
		p.jobsRepo = nil
	}
	return p
}

var pdfBytes = []byte("%PDF-1.7\n%fake body")

func TestProcessUpload_RejectsUnsupported(t *testing.T) {
	p := newTestProcessor(invoiceLines, nil, nil)

	tests := []struct {
		name string
		up   Upload
	}{
		{"wrong extension", Upload{Name: "quote.docx", Data: pdfBytes}},
		{"empty", Upload{Name: "quote.pdf"}},
		{"not a pdf", Upload{Name: "quote.pdf", Data: []byte("PK\x03\x04 zip")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ProcessUpload(context.Background(), tt.up)
			var appErr *common.AppError
			if !errors.As(err, &appErr) || appErr.Code != "UNSUPPORTED_FILE" {
				t.Fatalf("error = %v, want UNSUPPORTED_FILE", err)
			}
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput")
			}
		})
	}
}

func TestProcessUpload_ExtractsAndStoresFirstPage(t *testing.T) {
	files := &memFiles{}
	p := newTestProcessor(invoiceLines, files, nil)

	out, err := p.ProcessUpload(context.Background(), Upload{Name: "Quote.PDF", Data: pdfBytes})
	if err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if out.Record.ProjectTitle != "Kitchen Refit" {
		t.Errorf("ProjectTitle = %q\nraw:\n%s", out.Record.ProjectTitle, out.Record.RawText)
	}
	if out.Record.TotalAmount != 1380 {
		t.Errorf("TotalAmount = %v", out.Record.TotalAmount)
	}
	if out.Job != nil {
		t.Errorf("job created without CreateJob")
	}
	if out.JobKey == "" || out.FileID == uuid.Nil {
		t.Errorf("JobKey = %q, FileID = %v", out.JobKey, out.FileID)
	}

	want := []savedFile{{JobKey: out.JobKey, Name: "Quote_page1.pdf", MimeType: "application/pdf", Data: []byte("%PDF-page1")}}
	if diff := cmp.Diff(want, files.saved); diff != "" {
		t.Errorf("saved files mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessUpload_ExtractOnlyLeavesNoTrace(t *testing.T) {
	files := &memFiles{}
	jobsRepo := &memJobs{}
	p := newTestProcessor(invoiceLines, files, jobsRepo)

	out, err := p.ProcessUpload(context.Background(), Upload{
		Name:        "Quote.pdf",
		Data:        pdfBytes,
		CreateJob:   true,
		ExtractOnly: true,
	})
	if err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if out.Record.TotalAmount != 1380 || len(out.Record.Items) == 0 {
		t.Errorf("record not extracted: total=%v items=%d", out.Record.TotalAmount, len(out.Record.Items))
	}
	if len(files.saved) != 0 || len(jobsRepo.created) != 0 {
		t.Fatalf("saved %d files and %d jobs, want none", len(files.saved), len(jobsRepo.created))
	}
	if out.Job != nil || out.JobKey != "" || out.FileID != uuid.Nil {
		t.Errorf("outcome carries storage refs: %+v", out)
	}
}

func TestProcessUpload_CreatesJob(t *testing.T) {
	files := &memFiles{}
	jobsRepo := &memJobs{}
	p := newTestProcessor(invoiceLines, files, jobsRepo)

	out, err := p.ProcessUpload(context.Background(), Upload{Name: "quote.pdf", Data: pdfBytes, CreateJob: true})
	if err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if out.Job == nil {
		t.Fatalf("expected a job, warnings = %v", out.Warnings)
	}
	if out.Job.Title != "Kitchen Refit" || out.Job.Client != "Jane Doe" {
		t.Errorf("job = %+v", out.Job)
	}
	if len(jobsRepo.created) != 1 {
		t.Fatalf("created %d jobs", len(jobsRepo.created))
	}
	if len(files.saved) != 2 {
		t.Fatalf("saved %d files, want 2", len(files.saved))
	}
	if files.saved[1].JobKey != out.Job.ID.String() {
		t.Errorf("second file saved under %q, want job id", files.saved[1].JobKey)
	}
}

func TestProcessUpload_JobValidationBecomesWarning(t *testing.T) {
	jobsRepo := &memJobs{}
	lines := []string{"ACME CO", "TOTAL   100.00"}
	p := newTestProcessor(lines, nil, jobsRepo)

	out, err := p.ProcessUpload(context.Background(), Upload{Name: "quote.pdf", Data: pdfBytes, CreateJob: true})
	if err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if out.Job != nil || len(jobsRepo.created) != 0 {
		t.Errorf("job should not be created without a title")
	}
	if !out.NeedsReview {
		t.Errorf("NeedsReview = false for a record without items")
	}
	var found bool
	for _, w := range out.Warnings {
		if strings.HasPrefix(w, "job not created") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestProcessUpload_FileHistoryFailure(t *testing.T) {
	files := &memFiles{err: common.ErrDatabase}
	p := newTestProcessor(invoiceLines, files, nil)

	_, err := p.ProcessUpload(context.Background(), Upload{Name: "quote.pdf", Data: pdfBytes})
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("error = %v, want ErrDatabase", err)
	}
}
