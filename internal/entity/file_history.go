package entity

import (
	"time"

	"github.com/google/uuid"
)

// FileHistoryEntry is a stored document blob keyed by job.
type FileHistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	JobKey     string    `json:"job_key"`
	Name       string    `json:"name"`
	MimeType   string    `json:"type"`
	Size       int       `json:"size"`
	Data       []byte    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}
