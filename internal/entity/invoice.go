package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/constants"
)

// BoQLineItem is one bill-of-quantities row recovered from an invoice document.
// Amount is the document's stated amount, not Quantity*Rate.
type BoQLineItem struct {
	ID          int     `json:"id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// ExtractedInvoiceRecord is the structured result of extracting one uploaded document.
type ExtractedInvoiceRecord struct {
	CompanyName  string        `json:"company_name"`
	ProjectTitle string        `json:"project_title"`
	ClientName   string        `json:"client_name"`
	Location     string        `json:"location"`
	TotalAmount  float64       `json:"total_amount"`
	Items        []BoQLineItem `json:"items"`
	RawText      string        `json:"raw_text"`
}

// Invoice represents a generated invoice attached to a job.
type Invoice struct {
	ID        uuid.UUID               `json:"id"`
	JobID     uuid.UUID               `json:"job_id"`
	Number    string                  `json:"number"`
	Company   string                  `json:"company"`
	Date      time.Time               `json:"date"`
	DueDate   time.Time               `json:"due_date"`
	Items     []BoQLineItem           `json:"items"`
	Subtotal  float64                 `json:"subtotal"`
	Tax       float64                 `json:"tax"`
	Total     float64                 `json:"total"`
	Notes     string                  `json:"notes"`
	Status    constants.InvoiceStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}
