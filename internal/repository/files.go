package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

// DefaultHistoryKeep is how many files are kept per job key.
const DefaultHistoryKeep = 20

// FileHistoryRepository stores document blobs per job key, newest first.
type FileHistoryRepository interface {
	Save(ctx context.Context, jobKey, name, mimeType string, data []byte) (uuid.UUID, error)
	Get(ctx context.Context, jobKey string, id uuid.UUID) (entity.FileHistoryEntry, error)
	List(ctx context.Context, jobKey string) ([]entity.FileHistoryEntry, error)
}

type fileHistoryRepo struct {
	db     *DB
	keep   int
	now    func() time.Time
	logger *slog.Logger
}

// NewFileHistoryRepository keeps the newest keep entries per job key
// (DefaultHistoryKeep when keep <= 0).
func NewFileHistoryRepository(db *DB, keep int, logger *slog.Logger) FileHistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if keep <= 0 {
		keep = DefaultHistoryKeep
	}
	return &fileHistoryRepo{db: db, keep: keep, now: time.Now, logger: logger}
}

var fileHistoryMetaColumns = []string{"id", "job_key", "name", "mime_type", "size", "uploaded_at"}

func (r *fileHistoryRepo) Save(ctx context.Context, jobKey, name, mimeType string, data []byte) (uuid.UUID, error) {
	if jobKey == "" || name == "" {
		return uuid.Nil, common.NewAppError("INVALID_FILE", "job key and name are required", common.ErrInvalidInput)
	}
	id := uuid.New()
	b := r.db.builder()

	err := r.db.inTx(ctx, func(tx dialect.Tx) error {
		q, args := b.Insert(tableFileHistory).
			Columns("id", "job_key", "name", "mime_type", "size", "data", "uploaded_at").
			Values(id.String(), jobKey, name, mimeType, len(data), data, formatTime(r.now())).
			Query()
		if _, err := exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
		return r.prune(ctx, tx, jobKey)
	})
	if err != nil {
		r.logger.Error("failed to save file history", "job_key", jobKey, "name", name, "error", err)
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("file history saved", "job_key", jobKey, "file_id", id, "size", len(data))
	return id, nil
}

// prune deletes everything past the newest keep entries of jobKey.
func (r *fileHistoryRepo) prune(ctx context.Context, tx dialect.Tx, jobKey string) error {
	b := r.db.builder()
	q, args := b.Select("id").
		From(b.Table(tableFileHistory)).
		Where(entsql.EQ("job_key", jobKey)).
		OrderBy(entsql.Desc("uploaded_at"), entsql.Desc("id")).
		Offset(r.keep).
		Limit(1 << 30).
		Query()

	var rows entsql.Rows
	if err := tx.Query(ctx, q, args, &rows); err != nil {
		return fmt.Errorf("select stale files: %w", err)
	}
	var stale []any
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		stale = append(stale, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	q, args = b.Delete(tableFileHistory).Where(entsql.In("id", stale...)).Query()
	n, err := exec(ctx, tx, q, args)
	if err != nil {
		return fmt.Errorf("delete stale files: %w", err)
	}
	r.logger.Debug("file history pruned", "job_key", jobKey, "deleted", n)
	return nil
}

func (r *fileHistoryRepo) Get(ctx context.Context, jobKey string, id uuid.UUID) (entity.FileHistoryEntry, error) {
	b := r.db.builder()
	q, args := b.Select(append(fileHistoryMetaColumns, "data")...).
		From(b.Table(tableFileHistory)).
		Where(entsql.And(entsql.EQ("job_key", jobKey), entsql.EQ("id", id.String()))).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to get file", "job_key", jobKey, "file_id", id, "error", err)
		return entity.FileHistoryEntry{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entity.FileHistoryEntry{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		return entity.FileHistoryEntry{}, fmt.Errorf("file %s: %w", id, common.ErrNotFound)
	}
	var (
		e    entity.FileHistoryEntry
		data []byte
	)
	if err := scanFileMeta(&rows, &e, &data); err != nil {
		return entity.FileHistoryEntry{}, err
	}
	e.Data = data
	return e, nil
}

func (r *fileHistoryRepo) List(ctx context.Context, jobKey string) ([]entity.FileHistoryEntry, error) {
	b := r.db.builder()
	q, args := b.Select(fileHistoryMetaColumns...).
		From(b.Table(tableFileHistory)).
		Where(entsql.EQ("job_key", jobKey)).
		OrderBy(entsql.Desc("uploaded_at"), entsql.Desc("id")).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to list files", "job_key", jobKey, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := []entity.FileHistoryEntry{}
	for rows.Next() {
		var e entity.FileHistoryEntry
		if err := scanFileMeta(&rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanFileMeta(rows *entsql.Rows, e *entity.FileHistoryEntry, extra ...any) error {
	var id, uploaded string
	dest := append([]any{&id, &e.JobKey, &e.Name, &e.MimeType, &e.Size, &uploaded}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("scan file id: %w", err)
	}
	if e.UploadedAt, err = parseTime(uploaded); err != nil {
		return fmt.Errorf("scan file time: %w", err)
	}
	return nil
}
