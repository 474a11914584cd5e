package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

// JobRepository persists jobs and their invoices.
type JobRepository interface {
	Create(ctx context.Context, job entity.Job) (entity.Job, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Job, error)
	List(ctx context.Context) ([]entity.Job, error)
	AddInvoice(ctx context.Context, jobID uuid.UUID, inv entity.Invoice) (entity.Invoice, error)
}

type jobRepo struct {
	db     *DB
	now    func() time.Time
	logger *slog.Logger
}

func NewJobRepository(db *DB, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepo{db: db, now: time.Now, logger: logger}
}

var (
	jobColumns = []string{
		"id", "title", "client", "location", "status", "budget", "start_date",
		"end_date", "description", "total_invoiced", "created_at", "updated_at",
	}
	invoiceColumns = []string{
		"id", "job_id", "number", "company", "issue_date", "due_date", "items_json",
		"subtotal", "tax", "total", "notes", "status", "created_at",
	}
)

// Create inserts job together with any invoices it carries.
func (r *jobRepo) Create(ctx context.Context, job entity.Job) (entity.Job, error) {
	now := r.now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constants.JobStatusActive
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	var total float64
	for i := range job.Invoices {
		job.Invoices[i] = prepareInvoice(job.Invoices[i], job.ID, now)
		total += job.Invoices[i].Total
	}
	job.TotalInvoiced = total

	b := r.db.builder()
	err := r.db.inTx(ctx, func(tx dialect.Tx) error {
		q, args := b.Insert(tableJobs).
			Columns(jobColumns...).
			Values(job.ID.String(), job.Title, job.Client, job.Location, string(job.Status), job.Budget,
				formatTime(job.StartDate), formatOptionalTime(job.EndDate), job.Description, job.TotalInvoiced,
				formatTime(job.CreatedAt), formatTime(job.UpdatedAt)).
			Query()
		if _, err := exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		for _, inv := range job.Invoices {
			if err := r.insertInvoice(ctx, tx, inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create job", "job_id", job.ID, "title", job.Title, "error", err)
		return entity.Job{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.logger.Info("job created", "job_id", job.ID, "invoices", len(job.Invoices))
	return job, nil
}

// AddInvoice attaches inv to an existing job and bumps its invoiced total.
func (r *jobRepo) AddInvoice(ctx context.Context, jobID uuid.UUID, inv entity.Invoice) (entity.Invoice, error) {
	now := r.now().UTC()
	inv = prepareInvoice(inv, jobID, now)
	b := r.db.builder()

	err := r.db.inTx(ctx, func(tx dialect.Tx) error {
		q, args := b.Update(tableJobs).
			Add("total_invoiced", inv.Total).
			Set("updated_at", formatTime(now)).
			Where(entsql.EQ("id", jobID.String())).
			Query()
		n, err := exec(ctx, tx, q, args)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
		}
		return r.insertInvoice(ctx, tx, inv)
	})
	if err != nil {
		r.logger.Error("failed to add invoice", "job_id", jobID, "number", inv.Number, "error", err)
		return entity.Invoice{}, wrapDB(err)
	}
	return inv, nil
}

func prepareInvoice(inv entity.Invoice, jobID uuid.UUID, now time.Time) entity.Invoice {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.JobID = jobID
	if inv.Status == "" {
		inv.Status = constants.InvoiceStatusDraft
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	if inv.Items == nil {
		inv.Items = []entity.BoQLineItem{}
	}
	return inv
}

func (r *jobRepo) insertInvoice(ctx context.Context, tx dialect.Tx, inv entity.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	q, args := r.db.builder().Insert(tableInvoices).
		Columns(invoiceColumns...).
		Values(inv.ID.String(), inv.JobID.String(), inv.Number, inv.Company, formatTime(inv.Date),
			formatOptionalTime(inv.DueDate), string(items), inv.Subtotal, inv.Tax, inv.Total,
			inv.Notes, string(inv.Status), formatTime(inv.CreatedAt)).
		Query()
	if _, err := exec(ctx, tx, q, args); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (entity.Job, error) {
	jobs, err := r.query(ctx, entsql.EQ("id", id.String()))
	if err != nil {
		return entity.Job{}, err
	}
	if len(jobs) == 0 {
		return entity.Job{}, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return jobs[0], nil
}

// List returns every job, newest first.
func (r *jobRepo) List(ctx context.Context) ([]entity.Job, error) {
	return r.query(ctx, nil)
}

func (r *jobRepo) query(ctx context.Context, where *entsql.Predicate) ([]entity.Job, error) {
	b := r.db.builder()
	sel := b.Select(jobColumns...).From(b.Table(tableJobs)).OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if where != nil {
		sel.Where(where)
	}
	q, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to query jobs", "error", err)
		return nil, wrapDB(err)
	}
	out := []entity.Job{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		job, err := scanJob(&rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		index[job.ID] = len(out)
		job.Invoices = []entity.Invoice{}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, wrapDB(err)
	}
	if err := rows.Close(); err != nil {
		return nil, wrapDB(err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(out))
	for _, j := range out {
		ids = append(ids, j.ID.String())
	}
	q, args = b.Select(invoiceColumns...).
		From(b.Table(tableInvoices)).
		Where(entsql.In("job_id", ids...)).
		OrderBy("issue_date", "number").
		Query()
	var irows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &irows); err != nil {
		r.logger.Error("failed to query invoices", "error", err)
		return nil, wrapDB(err)
	}
	defer irows.Close()
	for irows.Next() {
		inv, err := scanInvoice(&irows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[inv.JobID]; ok {
			out[i].Invoices = append(out[i].Invoices, inv)
		}
	}
	return out, wrapDB(irows.Err())
}

func scanJob(rows *entsql.Rows) (entity.Job, error) {
	var (
		j                            entity.Job
		id, status                   string
		start, end, created, updated string
	)
	if err := rows.Scan(&id, &j.Title, &j.Client, &j.Location, &status, &j.Budget, &start,
		&end, &j.Description, &j.TotalInvoiced, &created, &updated); err != nil {
		return entity.Job{}, fmt.Errorf("scan job: %w", err)
	}
	var err error
	if j.ID, err = uuid.Parse(id); err != nil {
		return entity.Job{}, fmt.Errorf("scan job id: %w", err)
	}
	j.Status = constants.JobStatus(status)
	if j.StartDate, err = parseTime(start); err != nil {
		return entity.Job{}, fmt.Errorf("scan job start: %w", err)
	}
	if j.EndDate, err = parseOptionalTime(end); err != nil {
		return entity.Job{}, fmt.Errorf("scan job end: %w", err)
	}
	if j.CreatedAt, err = parseTime(created); err != nil {
		return entity.Job{}, fmt.Errorf("scan job created: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updated); err != nil {
		return entity.Job{}, fmt.Errorf("scan job updated: %w", err)
	}
	return j, nil
}

func scanInvoice(rows *entsql.Rows) (entity.Invoice, error) {
	var (
		inv                           entity.Invoice
		id, jobID, issued, due, items string
		status, created               string
	)
	if err := rows.Scan(&id, &jobID, &inv.Number, &inv.Company, &issued, &due, &items,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Notes, &status, &created); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	var err error
	if inv.ID, err = uuid.Parse(id); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice id: %w", err)
	}
	if inv.JobID, err = uuid.Parse(jobID); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice job id: %w", err)
	}
	if inv.Date, err = parseTime(issued); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice date: %w", err)
	}
	if inv.DueDate, err = parseOptionalTime(due); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice due date: %w", err)
	}
	if inv.CreatedAt, err = parseTime(created); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice created: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return entity.Invoice{}, fmt.Errorf("scan invoice items: %w", err)
	}
	inv.Status = constants.InvoiceStatus(status)
	return inv, nil
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}

// wrapDB tags err as a database error unless it already says not-found.
func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrDatabase, err)
}
