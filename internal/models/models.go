package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Invoice represents a ledger invoice row. Business fields live in the
// payload document because legacy import paths wrote them under differing
// keys; the canonical shape adapter resolves them.
type Invoice struct {
	ID        int64           `db:"id" json:"id"`
	CompanyID string          `db:"company_id" json:"company_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"-"`
}

// SoaStatement represents one vendor-submitted statement of account.
type SoaStatement struct {
	ID          int64     `db:"id" json:"id"`
	StatementID string    `db:"statement_id" json:"statement_id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	VendorName  string    `db:"vendor_name" json:"vendor_name"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// SoaLine represents one line item of a statement. LineNo preserves the
// order the line appeared on the statement; reconciliation processes lines
// in that order.
type SoaLine struct {
	ID          int64           `db:"id" json:"id"`
	StatementID int64           `db:"statement_id" json:"statement_id"`
	LineNo      int             `db:"line_no" json:"line_no"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	CreatedAt   time.Time       `db:"created_at" json:"-"`
}

// ReconciliationRun represents one statement-to-ledger reconciliation run.
type ReconciliationRun struct {
	ID          int64     `db:"id" json:"id"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	StatementID string    `db:"statement_id" json:"statement_id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

// SoaMatch records one line-to-invoice match with enough detail that no
// matching logic has to be re-derived downstream.
type SoaMatch struct {
	ID          int64     `db:"id" json:"id"`
	RunID       int64     `db:"run_id" json:"run_id"`
	SoaLineID   int64     `db:"soa_line_id" json:"soa_line_id"`
	InvoiceID   int64     `db:"invoice_id" json:"invoice_id"`
	Pass        int       `db:"pass" json:"pass"`
	AmountDelta string    `db:"amount_delta" json:"amount_delta"`
	DayDelta    int       `db:"day_delta" json:"day_delta"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// SoaDiscrepancy records a structured discrepancy for human review. Line and
// invoice references are nullable because a malformed record may leave only
// one side known. Description is NOT NULL at the schema level.
type SoaDiscrepancy struct {
	ID          int64         `db:"id" json:"id"`
	RunID       int64         `db:"run_id" json:"run_id"`
	Type        string        `db:"discrepancy_type" json:"discrepancy_type"`
	Severity    string        `db:"severity" json:"severity"`
	Description string        `db:"description" json:"description"`
	SoaLineID   sql.NullInt64 `db:"soa_line_id" json:"soa_line_id"`
	InvoiceID   sql.NullInt64 `db:"invoice_id" json:"invoice_id"`
	AckStatus   string        `db:"ack_status" json:"ack_status"`
	AckNote     string        `db:"ack_note" json:"ack_note"`
	CreatedAt   time.Time     `db:"created_at" json:"-"`
	UpdatedAt   time.Time     `db:"updated_at" json:"-"`
}

// ReconciliationAudit represents an audit trail entry for a run.
type ReconciliationAudit struct {
	ID        int64           `db:"id" json:"id"`
	RunID     int64           `db:"run_id" json:"run_id"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	UserID    string          `db:"user_id" json:"user_id"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
}

// Run status constants
const (
	RunStatusMatching   = "MATCHING"
	RunStatusAggregated = "AGGREGATED"
	RunStatusDone       = "DONE"
)

// Acknowledgement status constants
const (
	AckStatusPending   = "pending"
	AckStatusConfirmed = "confirmed"
	AckStatusDisputed  = "disputed"
)

// AuditAction constants
const (
	AuditActionCreated      = "created"
	AuditActionReconciled   = "reconciled"
	AuditActionAcknowledged = "acknowledged"
)
