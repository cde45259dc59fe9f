package matching

import (
	"fmt"

	"soa-reconciliation-service/internal/canonical"
)

// DiscrepancyType constants
type DiscrepancyType string

const (
	DiscrepancyNoMatch            DiscrepancyType = "NO_MATCH"
	DiscrepancyAmountMismatch     DiscrepancyType = "AMOUNT_MISMATCH"
	DiscrepancyDateMismatch       DiscrepancyType = "DATE_MISMATCH"
	DiscrepancyPartialPayment     DiscrepancyType = "PARTIAL_PAYMENT"
	DiscrepancyDuplicateCandidate DiscrepancyType = "DUPLICATE_CANDIDATE"
)

// Severity constants
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Discrepancy is a structured record of why or how a line failed to cleanly
// match. Description is never empty; the discrepancies table declares it
// NOT NULL.
type Discrepancy struct {
	Type        DiscrepancyType
	Severity    Severity
	Description string
	SoaLineRef  string
	InvoiceRef  string
}

// Classify turns a match result into zero or one discrepancy. Clean matches
// (pass 1 and pass 3) produce none; tolerated differences produce a warning
// or info record carrying the delta; an unmatched line is an error.
func Classify(line canonical.SoaLine, res MatchResult) *Discrepancy {
	switch res.Pass {
	case PassNone:
		return &Discrepancy{
			Type:     DiscrepancyNoMatch,
			Severity: SeverityError,
			Description: fmt.Sprintf("no invoice matched statement line %s (doc %q, %s %s)",
				line.Ref, line.DocNumber, line.Amount.StringFixed(2), line.Currency),
			SoaLineRef: line.Ref,
		}
	case PassDateTolerance:
		return &Discrepancy{
			Type:     DiscrepancyDateMismatch,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("line %s matched invoice %s with a %d day date difference",
				line.Ref, res.Invoice.InvoiceNumber, res.DayDelta),
			SoaLineRef: line.Ref,
			InvoiceRef: res.Invoice.Ref,
		}
	case PassAmountTolerance:
		return &Discrepancy{
			Type:     DiscrepancyAmountMismatch,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("line %s matched invoice %s with an amount difference of %s %s",
				line.Ref, res.Invoice.InvoiceNumber, res.AmountDelta.StringFixed(2), line.Currency),
			SoaLineRef: line.Ref,
			InvoiceRef: res.Invoice.Ref,
		}
	case PassPartial:
		outstanding := res.Invoice.TotalAmount.Sub(line.Amount)
		return &Discrepancy{
			Type:     DiscrepancyPartialPayment,
			Severity: SeverityInfo,
			Description: fmt.Sprintf("line %s is a partial payment of %s %s against invoice %s (%s %s outstanding)",
				line.Ref, line.Amount.StringFixed(2), line.Currency,
				res.Invoice.InvoiceNumber, outstanding.StringFixed(2), line.Currency),
			SoaLineRef: line.Ref,
			InvoiceRef: res.Invoice.Ref,
		}
	default:
		return nil
	}
}

// duplicateCandidate reports that more than one pool invoice qualified under
// the winning pass; the first in pool order was consumed.
func duplicateCandidate(line canonical.SoaLine, res MatchResult) *Discrepancy {
	return &Discrepancy{
		Type:     DiscrepancyDuplicateCandidate,
		Severity: SeverityWarning,
		Description: fmt.Sprintf("line %s had %d qualifying invoices under pass %d; matched %s",
			line.Ref, res.Candidates, res.Pass, res.Invoice.InvoiceNumber),
		SoaLineRef: line.Ref,
		InvoiceRef: res.Invoice.Ref,
	}
}

// shapeDiscrepancy degrades a malformed raw record into a reviewable
// discrepancy instead of aborting the run.
func shapeDiscrepancy(lineRef, invoiceRef string, shapeErr error) *Discrepancy {
	return &Discrepancy{
		Type:        DiscrepancyNoMatch,
		Severity:    SeverityError,
		Description: fmt.Sprintf("record could not be adapted: %v", shapeErr),
		SoaLineRef:  lineRef,
		InvoiceRef:  invoiceRef,
	}
}
