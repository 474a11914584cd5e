package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/entity"
	"github.com/joseph-ayodele/construpro/internal/repository"
)

const (
	BoQSheet  = "BoQ"
	JobsSheet = "Jobs"

	dateLayout = "2006-01-02"
	moneyFmt   = "#,##0.00"
)

var boqHeaders = []string{"#", "Category", "Trade", "Description", "Unit", "Qty", "Rate", "Amount"}

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	jobsRepo repository.JobRepository
	logger   *slog.Logger
}

func NewService(jobsRepo repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobsRepo: jobsRepo, logger: logger}
}

// ExportBoQXLSX renders one extracted record as a bill of quantities workbook:
// a header block naming the parties, one row per item and a totals row.
func ExportBoQXLSX(rec entity.ExtractedInvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := useSheet(f, BoQSheet); err != nil {
		return nil, err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(BoQSheet, cell, v)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(moneyFmt)})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	meta := [][2]string{
		{"Company", rec.CompanyName},
		{"Project", rec.ProjectTitle},
		{"Client", rec.ClientName},
		{"Location", rec.Location},
	}
	row := 1
	for _, m := range meta {
		write(1, row, m[0])
		write(2, row, m[1])
		row++
	}
	_ = f.SetCellStyle(BoQSheet, "A1", fmt.Sprintf("A%d", row-1), bold)
	row++

	headerRow := row
	for i, h := range boqHeaders {
		write(i+1, row, h)
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(boqHeaders), row)
	_ = f.SetCellStyle(BoQSheet, first, last, bold)
	row++

	for _, it := range rec.Items {
		trade, _ := constants.Canonicalize(it.Category)
		write(1, row, it.ID)
		write(2, row, it.Category)
		write(3, row, string(trade))
		write(4, row, it.Description)
		write(5, row, it.Unit)
		write(6, row, it.Quantity)
		write(7, row, it.Rate)
		write(8, row, it.Amount)
		row++
	}

	write(7, row, "Total")
	write(8, row, rec.TotalAmount)
	_ = f.SetCellStyle(BoQSheet, fmt.Sprintf("G%d", row), fmt.Sprintf("G%d", row), bold)
	_ = f.SetCellStyle(BoQSheet, fmt.Sprintf("G%d", headerRow+1), fmt.Sprintf("H%d", row), money)

	_ = f.SetColWidth(BoQSheet, "A", "A", 6)
	_ = f.SetColWidth(BoQSheet, "B", "C", 24)
	_ = f.SetColWidth(BoQSheet, "D", "D", 48)
	_ = f.SetColWidth(BoQSheet, "E", "F", 8)
	_ = f.SetColWidth(BoQSheet, "G", "H", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportJobsXLSX lists every job with its invoiced total.
func (s *Service) ExportJobsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobsRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := useSheet(f, JobsSheet); err != nil {
		return nil, err
	}

	headers := []string{"Title", "Client", "Location", "Status", "Start", "End", "Budget", "Invoiced", "Invoices"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(JobsSheet, cell, h)
	}

	for i, j := range jobs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(JobsSheet, cell, v)
		}
		write(1, j.Title)
		write(2, j.Client)
		write(3, truncate(j.Location, 140))
		write(4, string(j.Status))
		write(5, formatDate(j.StartDate))
		write(6, formatDate(j.EndDate))
		write(7, j.Budget)
		write(8, j.TotalInvoiced)
		write(9, len(j.Invoices))
	}

	_ = f.SetColWidth(JobsSheet, "A", "C", 28)
	_ = f.SetColWidth(JobsSheet, "D", "F", 12)
	_ = f.SetColWidth(JobsSheet, "G", "H", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheet", JobsSheet,
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// useSheet makes name the only, active sheet of f.
func useSheet(f *excelize.File, name string) error {
	if index, _ := f.GetSheetIndex(name); index == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(name)
	f.SetActiveSheet(activeIndex)
	if name != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

func ptr[T any](v T) *T { return &v }
