package canonical

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchMode is the per-line opt-in expression for riskier matching.
type MatchMode string

const (
	MatchModeStrict  MatchMode = "strict"
	MatchModePartial MatchMode = "partial"
)

// Invoice is the storage-agnostic invoice shape the matching engine depends
// on. It is built exclusively by the shape adapter; downstream code never
// reads storage-native field names.
type Invoice struct {
	Ref           string
	InvoiceNumber string
	TotalAmount   decimal.Decimal
	Currency      string
	InvoiceDate   *time.Time
}

// SoaLine is one line item from a vendor-submitted statement of account.
type SoaLine struct {
	Ref          string
	DocNumber    string
	Amount       decimal.Decimal
	Currency     string
	Date         *time.Time
	AllowPartial bool
	MatchMode    MatchMode
}

// RawInvoiceRecord is a storage-layer invoice row whose business fields live
// in an alias-keyed payload (column names vary across legacy sources).
type RawInvoiceRecord struct {
	Ref    string
	Fields map[string]any
}

// RawSoaLineRecord is a storage-layer SOA line row, same payload convention.
type RawSoaLineRecord struct {
	Ref    string
	Fields map[string]any
}

// ShapeError reports a raw record that cannot be adapted to the canonical
// shape: a required field is missing or carries the wrong primitive type.
// It is fatal for that one record only.
type ShapeError struct {
	Ref    string
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("record %s: field %q: %s", e.Ref, e.Field, e.Reason)
}
