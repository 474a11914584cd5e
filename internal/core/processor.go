package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/entity"
	"github.com/joseph-ayodele/construpro/internal/jobs"
	"github.com/joseph-ayodele/construpro/internal/repository"
)

// pdfHeaderWindow is how far into a file the %PDF- header may start.
const pdfHeaderWindow = 1024

var pdfMagic = []byte("%PDF-")

// Upload is one document handed in for processing.
type Upload struct {
	Name      string
	Data      []byte
	CreateJob bool
	// ExtractOnly skips file history and job creation.
	ExtractOnly bool
}

// Outcome is what processing an upload produced.
type Outcome struct {
	Record      entity.ExtractedInvoiceRecord `json:"record"`
	Pages       int                           `json:"pages"`
	TotalTier   string                        `json:"total_tier"`
	JobKey      string                        `json:"job_key,omitempty"`
	FileID      uuid.UUID                     `json:"file_id"`
	Job         *entity.Job                   `json:"job,omitempty"`
	NeedsReview bool                          `json:"needs_review"`
	Warnings    []string                      `json:"warnings,omitempty"`
}

// Processor coordinates extraction, file history and job creation for uploads.
type Processor struct {
	logger    *slog.Logger
	extractor *extract.Extractor
	filesRepo repository.FileHistoryRepository
	jobsRepo  repository.JobRepository
	now       func() time.Time
	firstPage func([]byte) ([]byte, error)
}

// NewProcessor creates a Processor. filesRepo and jobsRepo may be nil, which
// turns off file history and job creation respectively.
func NewProcessor(
	logger *slog.Logger,
	extractor *extract.Extractor,
	filesRepo repository.FileHistoryRepository,
	jobsRepo repository.JobRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		filesRepo: filesRepo,
		jobsRepo:  jobsRepo,
		now:       time.Now,
		firstPage: pdftext.FirstPage,
	}
}

// ProcessUpload validates and extracts one document. The first page is kept
// in file history under the temporary job key when a project title was found,
// and under the job id when a job is created.
func (p *Processor) ProcessUpload(ctx context.Context, up Upload) (Outcome, error) {
	if err := validateUpload(up); err != nil {
		p.logger.Warn("upload rejected", "name", up.Name, "error", err)
		return Outcome{}, err
	}

	res, err := p.extractor.Extract(ctx, up.Data)
	if err != nil {
		p.logger.Error("processor.extract.failed", "name", up.Name, "error", err)
		return Outcome{}, err
	}

	out := Outcome{
		Record:      res.Record,
		Pages:       res.Pages,
		TotalTier:   res.TotalTier.String(),
		NeedsReview: res.NeedsReview(),
	}
	if res.TotalMissing() {
		out.Warnings = append(out.Warnings, "total amount could not be extracted")
	}
	if res.ItemsMissing() {
		out.Warnings = append(out.Warnings, "no line items could be extracted")
	}
	if res.SchemaErr != nil {
		out.Warnings = append(out.Warnings, res.SchemaErr.Error())
	}

	if up.ExtractOnly {
		p.logger.Info("upload extracted", "name", up.Name, "pages", out.Pages, "items", len(out.Record.Items))
		return out, nil
	}

	var firstPage []byte
	if p.filesRepo != nil && (res.Record.ProjectTitle != "" || up.CreateJob) {
		firstPage, err = p.firstPage(up.Data)
		if err != nil {
			p.logger.Warn("first page extraction failed", "name", up.Name, "error", err)
			out.Warnings = append(out.Warnings, "first page could not be stored")
		}
	}

	if firstPage != nil && res.Record.ProjectTitle != "" {
		out.JobKey = jobs.TempJobKey(res.Record.ProjectTitle)
		out.FileID, err = p.filesRepo.Save(ctx, out.JobKey, jobs.FirstPageName(up.Name), constants.PDFMimeType, firstPage)
		if err != nil {
			return out, common.WrapError(err, "save first page")
		}
	}

	if up.CreateJob && p.jobsRepo != nil {
		job, err := p.createJob(ctx, res.Record, up.Name, firstPage)
		if err != nil {
			var appErr *common.AppError
			if !asAppValidation(err, &appErr) {
				return out, err
			}
			out.Warnings = append(out.Warnings, "job not created: "+appErr.Message)
		} else {
			out.Job = &job
		}
	}

	p.logger.Info("upload processed",
		"name", up.Name,
		"pages", out.Pages,
		"items", len(out.Record.Items),
		"file_id", out.FileID,
		"job_created", out.Job != nil,
		"needs_review", out.NeedsReview,
	)
	return out, nil
}

func (p *Processor) createJob(ctx context.Context, rec entity.ExtractedInvoiceRecord, name string, firstPage []byte) (entity.Job, error) {
	job := jobs.ToJob(rec, p.now())
	if err := jobs.ValidateJob(job); err != nil {
		return entity.Job{}, err
	}
	for _, inv := range job.Invoices {
		if err := jobs.ValidateInvoice(inv); err != nil {
			p.logger.Debug("generated invoice incomplete", "job_id", job.ID, "error", err)
		}
	}
	created, err := p.jobsRepo.Create(ctx, job)
	if err != nil {
		return entity.Job{}, common.WrapError(err, "create job")
	}
	if firstPage != nil && p.filesRepo != nil {
		if _, err := p.filesRepo.Save(ctx, created.ID.String(), jobs.FirstPageName(name), constants.PDFMimeType, firstPage); err != nil {
			p.logger.Error("failed to store first page for job", "job_id", created.ID, "error", err)
		}
	}
	return created, nil
}

func validateUpload(up Upload) error {
	if constants.MapExtToFormat(filepath.Ext(up.Name)) == "" {
		return common.NewAppError("UNSUPPORTED_FILE", "please upload a PDF file", common.ErrInvalidInput)
	}
	if len(up.Data) == 0 {
		return common.NewAppError("UNSUPPORTED_FILE", "file is empty", common.ErrInvalidInput)
	}
	head := up.Data[:min(len(up.Data), pdfHeaderWindow)]
	if !bytes.Contains(head, pdfMagic) {
		return common.NewAppError("UNSUPPORTED_FILE", "file is not a PDF document", common.ErrInvalidInput)
	}
	return nil
}

func asAppValidation(err error, target **common.AppError) bool {
	return errors.As(err, target) && errors.Is(err, common.ErrValidation)
}
