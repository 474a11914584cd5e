package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

var now = time.Date(2025, time.March, 14, 15, 4, 5, 0, time.UTC)

func sampleRecord() entity.ExtractedInvoiceRecord {
	return entity.ExtractedInvoiceRecord{
		CompanyName:  "PTP BUILDING SERVICES",
		ProjectTitle: "Bathroom Renovation",
		ClientName:   "Mrs Dlamini",
		Location:     "12 Long St",
		TotalAmount:  1380,
		Items: []entity.BoQLineItem{
			{ID: 1, Description: "Floor tiles", Unit: "m²", Quantity: 5, Rate: 240, Amount: 1200, Category: "Tiling installation"},
		},
	}
}

func TestTempJobKey(t *testing.T) {
	tests := map[string]string{
		"Bathroom Renovation":     "bathroom_renovation",
		"  Kitchen   Remodel\tB ": "_kitchen_remodel_b_",
		"":                        "temp_job",
	}
	for in, want := range tests {
		if got := TempJobKey(in); got != want {
			t.Errorf("TempJobKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstPageName(t *testing.T) {
	tests := map[string]string{
		"quote.pdf":    "quote_page1.pdf",
		"QUOTE.PDF":    "QUOTE_page1.pdf",
		"scan.pdf.bak": "scan.pdf.bak",
	}
	for in, want := range tests {
		if got := FirstPageName(in); got != want {
			t.Errorf("FirstPageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToJob(t *testing.T) {
	job := ToJob(sampleRecord(), now)

	if job.ID == uuid.Nil {
		t.Fatal("job id not set")
	}
	if job.Title != "Bathroom Renovation" || job.Client != "Mrs Dlamini" || job.Location != "12 Long St" {
		t.Errorf("job fields = %+v", job)
	}
	if job.Budget != 1380 || job.Status != constants.JobStatusActive {
		t.Errorf("budget/status = %v/%v", job.Budget, job.Status)
	}
	wantStart := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	if !job.StartDate.Equal(wantStart) || !job.EndDate.Equal(wantStart.AddDate(0, 0, 30)) {
		t.Errorf("dates = %v..%v", job.StartDate, job.EndDate)
	}
	wantDesc := "Project based on invoice from PTP BUILDING SERVICES\nItems:\n- Floor tiles"
	if job.Description != wantDesc {
		t.Errorf("Description = %q, want %q", job.Description, wantDesc)
	}
	if len(job.Invoices) != 1 {
		t.Fatalf("invoices = %d", len(job.Invoices))
	}
	inv := job.Invoices[0]
	if inv.JobID != job.ID || inv.Company != "PTP BUILDING SERVICES" {
		t.Errorf("invoice = %+v", inv)
	}
	if diff := cmp.Diff(sampleRecord().Items, inv.Items); diff != "" {
		t.Errorf("invoice items mismatch (-want +got):\n%s", diff)
	}
	if err := ValidateJob(job); err != nil {
		t.Errorf("ValidateJob() = %v", err)
	}
}

func TestToInvoice(t *testing.T) {
	tests := []struct {
		name                 string
		mutate               func(*entity.ExtractedInvoiceRecord)
		subtotal, tax, total float64
	}{
		{name: "total above items", subtotal: 1200, tax: 180, total: 1380},
		{name: "missing total uses items", mutate: func(r *entity.ExtractedInvoiceRecord) { r.TotalAmount = 0 }, subtotal: 1200, tax: 0, total: 1200},
		{name: "total below items", mutate: func(r *entity.ExtractedInvoiceRecord) { r.TotalAmount = 1000 }, subtotal: 1200, tax: 0, total: 1000},
	}
	jobID := uuid.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			if tt.mutate != nil {
				tt.mutate(&rec)
			}
			inv := ToInvoice(rec, jobID, 7, now)
			if inv.Subtotal != tt.subtotal || inv.Tax != tt.tax || inv.Total != tt.total {
				t.Errorf("subtotal/tax/total = %v/%v/%v", inv.Subtotal, inv.Tax, inv.Total)
			}
			if inv.Number != "INV-2025-0007" || inv.Status != constants.InvoiceStatusDraft {
				t.Errorf("number/status = %s/%s", inv.Number, inv.Status)
			}
			if err := ValidateInvoice(inv); err != nil {
				t.Errorf("ValidateInvoice() = %v", err)
			}
		})
	}
}

func TestFormatInvoiceNumber(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"INV-001":     "INV-001",
		"12":          "INV-2025-0012",
		"No. 123456":  "INV-2025-123456",
		"Q-2024/0042": "INV-2025-20240042",
	}
	for in, want := range tests {
		if got := FormatInvoiceNumber(in, now); got != want {
			t.Errorf("FormatInvoiceNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCalculateInvoiceTotal(t *testing.T) {
	items := []entity.BoQLineItem{
		{Quantity: 3, Rate: 12.5, Amount: 40},
		{Quantity: 2, Rate: 50, Amount: 100},
	}
	if got := CalculateInvoiceTotal(items); got != 137.5 {
		t.Fatalf("CalculateInvoiceTotal() = %v", got)
	}
	if got := CalculateInvoiceTotal(nil); got != 0 {
		t.Fatalf("CalculateInvoiceTotal(nil) = %v", got)
	}
}

func TestValidateInvoice_Failures(t *testing.T) {
	inv := ToInvoice(sampleRecord(), uuid.New(), 1, now)
	inv.Items = nil
	inv.Total = -5
	err := ValidateInvoice(inv)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("error should wrap ErrValidation: %v", err)
	}
}

func TestValidateJob_MissingClient(t *testing.T) {
	rec := sampleRecord()
	rec.ClientName = ""
	if err := ValidateJob(ToJob(rec, now)); err == nil {
		t.Fatal("expected error for missing client")
	}
}
