package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/internal/core"
)

// Job is one queued upload.
type Job struct {
	ID          uuid.UUID
	Upload      core.Upload
	SubmittedAt time.Time
	RequestID   string
}

// NewJob wraps an upload with a fresh id.
func NewJob(up core.Upload) Job {
	return Job{ID: uuid.New(), Upload: up, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
