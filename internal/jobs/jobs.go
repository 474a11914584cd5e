// Package jobs maps extracted invoice records onto jobs and generated invoices.
package jobs

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

const (
	// DefaultDuration is the span given to a job created from a document.
	DefaultDuration = 30 * 24 * time.Hour
	// InvoiceDueAfter is how long after issue a generated invoice falls due.
	InvoiceDueAfter = 30 * 24 * time.Hour

	tempJobKeyFallback = "temp_job"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pdfSuffixRe  = regexp.MustCompile(`(?i)\.pdf$`)
	nonDigitRe   = regexp.MustCompile(`[^0-9]`)
)

// TempJobKey derives the file-history key used before a job exists.
func TempJobKey(projectTitle string) string {
	key := strings.ToLower(whitespaceRe.ReplaceAllString(projectTitle, "_"))
	if key == "" {
		return tempJobKeyFallback
	}
	return key
}

// FirstPageName names the stored first page of an uploaded file.
func FirstPageName(uploadName string) string {
	return pdfSuffixRe.ReplaceAllString(uploadName, "_page1.pdf")
}

// Description is the job description generated from a record.
func Description(rec entity.ExtractedInvoiceRecord) string {
	var sb strings.Builder
	sb.WriteString("Project based on invoice from ")
	sb.WriteString(rec.CompanyName)
	sb.WriteString("\nItems:")
	for _, it := range rec.Items {
		sb.WriteString("\n- ")
		sb.WriteString(it.Description)
	}
	if len(rec.Items) == 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToJob builds an active job from rec, starting today and ending DefaultDuration later.
// The record's items and company travel on the job's first invoice.
func ToJob(rec entity.ExtractedInvoiceRecord, now time.Time) entity.Job {
	start := day(now)
	job := entity.Job{
		ID:          uuid.New(),
		Title:       rec.ProjectTitle,
		Client:      rec.ClientName,
		Location:    rec.Location,
		Status:      constants.JobStatusActive,
		Budget:      rec.TotalAmount,
		StartDate:   start,
		EndDate:     start.Add(DefaultDuration),
		Description: Description(rec),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	inv := ToInvoice(rec, job.ID, 1, now)
	job.Invoices = []entity.Invoice{inv}
	job.TotalInvoiced = inv.Total
	return job
}

// ToInvoice builds a draft invoice for jobID numbered by seq.
// The stated total wins; when it is missing the item amounts are summed.
func ToInvoice(rec entity.ExtractedInvoiceRecord, jobID uuid.UUID, seq int, now time.Time) entity.Invoice {
	var subtotal float64
	for _, it := range rec.Items {
		subtotal += it.Amount
	}
	subtotal = round2(subtotal)

	total := rec.TotalAmount
	if total == 0 {
		total = subtotal
	}
	var tax float64
	if total > subtotal {
		tax = round2(total - subtotal)
	}

	items := make([]entity.BoQLineItem, len(rec.Items))
	copy(items, rec.Items)

	issued := day(now)
	return entity.Invoice{
		ID:        uuid.New(),
		JobID:     jobID,
		Number:    FormatInvoiceNumber(fmt.Sprint(seq), now),
		Company:   rec.CompanyName,
		Date:      issued,
		DueDate:   issued.Add(InvoiceDueAfter),
		Items:     items,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
		Status:    constants.InvoiceStatusDraft,
		CreatedAt: now.UTC(),
	}
}

// FormatInvoiceNumber returns INV-YYYY-NNNN from the digits in number.
// Numbers already starting with INV- pass through; "" stays "".
func FormatInvoiceNumber(number string, now time.Time) string {
	if number == "" {
		return ""
	}
	if strings.HasPrefix(number, "INV-") {
		return number
	}
	digits := nonDigitRe.ReplaceAllString(number, "")
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	return fmt.Sprintf("INV-%d-%s", now.Year(), digits)
}

// CalculateInvoiceTotal sums quantity*rate over items.
func CalculateInvoiceTotal(items []entity.BoQLineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Quantity * it.Rate
	}
	return total
}

// ValidateInvoice requires items, a non-negative total and an issue date.
func ValidateInvoice(inv entity.Invoice) error {
	v := common.NewValidator()
	v.Field("number", inv.Number, common.Required)
	v.Field("total", inv.Total, common.NonNegative)
	v.Field("date", inv.Date, func(field string, value interface{}) *common.ValidationError {
		if t, _ := value.(time.Time); t.IsZero() {
			return &common.ValidationError{Field: field, Value: value, Message: "is required"}
		}
		return nil
	})
	v.Field("due_date", inv.DueDate, common.NotBefore(inv.Date))
	if len(inv.Items) == 0 {
		v.Field("items", len(inv.Items), func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "must not be empty"}
		})
	}
	if err := v.Error(); err != nil {
		return common.NewAppError("INVALID_INVOICE", err.Error(), common.ErrValidation)
	}
	return nil
}

// ValidateJob requires a title, a client and a start date.
func ValidateJob(job entity.Job) error {
	v := common.NewValidator()
	v.Field("title", job.Title, common.Required, common.MaxLen(200))
	v.Field("client", job.Client, common.Required, common.MaxLen(200))
	v.Field("end_date", job.EndDate, common.NotBefore(job.StartDate))
	if job.StartDate.IsZero() {
		v.Field("start_date", nil, common.Required)
	}
	if err := v.Error(); err != nil {
		return common.NewAppError("INVALID_JOB", err.Error(), common.ErrValidation)
	}
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
