package repository

import (
	"strings"

	"entgo.io/ent/dialect"
)

const (
	tableJobs        = "jobs"
	tableInvoices    = "invoices"
	tableFileHistory = "file_history"
)

// schemaStatements returns the DDL for d. Timestamps are stored as fixed-width
// UTC text so they order lexically on both dialects.
func schemaStatements(d string) []string {
	floatType, blobType := "REAL", "BLOB"
	if d == dialect.Postgres {
		floatType, blobType = "DOUBLE PRECISION", "BYTEA"
	}
	r := strings.NewReplacer("{real}", floatType, "{blob}", blobType)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	client TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	budget {real} NOT NULL DEFAULT 0,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	total_invoiced {real} NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	number TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	issue_date TEXT NOT NULL,
	due_date TEXT NOT NULL DEFAULT '',
	items_json TEXT NOT NULL DEFAULT '[]',
	subtotal {real} NOT NULL DEFAULT 0,
	tax {real} NOT NULL DEFAULT 0,
	total {real} NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS invoices_job_id_idx ON invoices (job_id)`,
		`CREATE TABLE IF NOT EXISTS file_history (
	id TEXT PRIMARY KEY,
	job_key TEXT NOT NULL,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size INTEGER NOT NULL,
	data {blob} NOT NULL,
	uploaded_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS file_history_job_key_idx ON file_history (job_key, uploaded_at)`,
	}
	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}
