package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
)

// Job represents a construction job for data transfer between layers.
type Job struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Client        string              `json:"client"`
	Location      string              `json:"location"`
	Status        constants.JobStatus `json:"status"`
	Budget        float64             `json:"budget"`
	StartDate     time.Time           `json:"start_date"`
	EndDate       time.Time           `json:"end_date"`
	Description   string              `json:"description"`
	Invoices      []Invoice           `json:"invoices"`
	TotalInvoiced float64             `json:"total_invoiced"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
