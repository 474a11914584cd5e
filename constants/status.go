package constants

// JobStatus is the lifecycle state of a construction job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusOnHold    JobStatus = "on-hold"
	JobStatusCancelled JobStatus = "cancelled"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)
