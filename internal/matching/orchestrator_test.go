package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soa-reconciliation-service/internal/canonical"
)

func rawInvoice(ref string, fields map[string]any) canonical.RawInvoiceRecord {
	return canonical.RawInvoiceRecord{Ref: ref, Fields: fields}
}

func rawLine(ref string, fields map[string]any) canonical.RawSoaLineRecord {
	return canonical.RawSoaLineRecord{Ref: ref, Fields: fields}
}

func invoiceFields(number, amount, currency, date string) map[string]any {
	fields := map[string]any{
		"invoice_number": number,
		"total_amount":   amount,
		"currency":       currency,
	}
	if date != "" {
		fields["invoice_date"] = date
	}
	return fields
}

func lineFields(doc, amount, currency, date string) map[string]any {
	fields := map[string]any{
		"doc_number": doc,
		"amount":     amount,
		"currency":   currency,
	}
	if date != "" {
		fields["line_date"] = date
	}
	return fields
}

func TestOrchestrator_StateTransitions(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))
	assert.Equal(t, StateInitialized, o.State())

	_, err := o.Run(nil, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateAggregated, o.State())

	// A consumed orchestrator refuses to mutate its frozen report.
	_, err = o.Run(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrRunConsumed)
}

func TestOrchestrator_InvoiceConsumedAtMostOnce(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))

	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", lineFields("INV-001", "100.00", "USD", "")),
		rawLine("line-2", lineFields("INV-001", "100.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "")),
	}

	report, err := o.Run(lines, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "line-1", report.Matches[0].Line.Ref)

	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, DiscrepancyNoMatch, report.Discrepancies[0].Type)
	assert.Equal(t, "line-2", report.Discrepancies[0].SoaLineRef)

	assert.Equal(t, 1, report.Summary.Matched)
	assert.Equal(t, 1, report.Summary.Unmatched)
	assert.Equal(t, 0, report.Summary.PoolRemaining)
}

func TestOrchestrator_MalformedLineDoesNotAbortRun(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))

	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", map[string]any{"amount": "100.00", "currency": "USD"}),
		rawLine("line-2", lineFields("INV-001", "100.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "")),
	}

	report, err := o.Run(lines, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "line-2", report.Matches[0].Line.Ref)

	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, DiscrepancyNoMatch, d.Type)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "line-1", d.SoaLineRef)
	assert.NotEmpty(t, d.Description)

	assert.Equal(t, 1, report.Summary.MalformedLines)
}

func TestOrchestrator_MalformedInvoiceExcludedFromPool(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))

	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", lineFields("INV-001", "100.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-bad", map[string]any{"total_amount": "100.00", "currency": "USD"}),
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "")),
	}

	report, err := o.Run(lines, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "inv-1", report.Matches[0].Result.Invoice.Ref)

	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, DiscrepancyNoMatch, d.Type)
	assert.Empty(t, d.SoaLineRef)
	assert.Equal(t, "inv-bad", d.InvoiceRef)
	assert.Equal(t, 1, report.Summary.MalformedInvoices)
}

func TestOrchestrator_ToleratedMatchesProduceDiscrepancies(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))

	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", lineFields("INV-001", "100.00", "USD", "2025-01-20")),
		rawLine("line-2", lineFields("INV-002", "1004.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "2025-01-15")),
		rawInvoice("inv-2", invoiceFields("INV-002", "1000.00", "USD", "")),
	}

	report, err := o.Run(lines, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, report.Matches, 2)
	assert.Equal(t, PassDateTolerance, report.Matches[0].Result.Pass)
	assert.Equal(t, 5, report.Matches[0].Result.DayDelta)
	assert.Equal(t, PassAmountTolerance, report.Matches[1].Result.Pass)

	require.Len(t, report.Discrepancies, 2)
	assert.Equal(t, DiscrepancyDateMismatch, report.Discrepancies[0].Type)
	assert.Equal(t, DiscrepancyAmountMismatch, report.Discrepancies[1].Type)
	for _, d := range report.Discrepancies {
		assert.NotEmpty(t, d.Description)
	}
}

func TestOrchestrator_DuplicateCandidateSurfaces(t *testing.T) {
	o := NewOrchestrator(NewEngine(DefaultConfig()))

	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", lineFields("INV-001", "100.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "")),
		rawInvoice("inv-2", invoiceFields("INV-001", "100.00", "USD", "")),
	}

	report, err := o.Run(lines, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, report.Matches, 1)
	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, DiscrepancyDuplicateCandidate, d.Type)
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, "inv-1", d.InvoiceRef)
	assert.Equal(t, 1, report.Summary.PoolRemaining)
}

func TestOrchestrator_LineOrderAffectsAssignments(t *testing.T) {
	// Two invoices share a document number; the pool shrinks as lines
	// consume invoices, so processing order changes who gets what. This is
	// the documented behavior, not an accident.
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-a", invoiceFields("INV-001", "100.00", "USD", "2025-01-10")),
		rawInvoice("inv-b", invoiceFields("INV-001", "100.00", "USD", "2025-01-12")),
	}
	lineTolerant := rawLine("line-t", lineFields("INV-001", "100.00", "USD", "2025-01-13"))
	lineExact := rawLine("line-e", lineFields("INV-001", "100.00", "USD", "2025-01-10"))

	first, err := NewOrchestrator(NewEngine(DefaultConfig())).
		Run([]canonical.RawSoaLineRecord{lineTolerant, lineExact}, invoices, Options{})
	require.NoError(t, err)

	second, err := NewOrchestrator(NewEngine(DefaultConfig())).
		Run([]canonical.RawSoaLineRecord{lineExact, lineTolerant}, invoices, Options{})
	require.NoError(t, err)

	require.Len(t, first.Matches, 2)
	require.Len(t, second.Matches, 2)

	assignment := func(report *Report) map[string]string {
		m := make(map[string]string)
		for _, outcome := range report.Matches {
			m[outcome.Line.Ref] = outcome.Result.Invoice.Ref
		}
		return m
	}
	assert.NotEqual(t, assignment(first), assignment(second))
}

func TestOrchestrator_IdenticalInputsProduceIdenticalReports(t *testing.T) {
	lines := []canonical.RawSoaLineRecord{
		rawLine("line-1", lineFields("INV-001", "100.00", "USD", "2025-01-15")),
		rawLine("line-2", lineFields("MISSING-1", "50.00", "USD", "")),
		rawLine("line-3", lineFields("INV-002", "1004.00", "USD", "")),
	}
	invoices := []canonical.RawInvoiceRecord{
		rawInvoice("inv-1", invoiceFields("INV-001", "100.00", "USD", "2025-01-15")),
		rawInvoice("inv-2", invoiceFields("INV-002", "1000.00", "USD", "")),
	}

	first, err := NewOrchestrator(NewEngine(DefaultConfig())).Run(lines, invoices, Options{})
	require.NoError(t, err)
	second, err := NewOrchestrator(NewEngine(DefaultConfig())).Run(lines, invoices, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	require.Equal(t, len(first.Matches), len(second.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].Line.Ref, second.Matches[i].Line.Ref)
		assert.Equal(t, first.Matches[i].Result.Invoice.Ref, second.Matches[i].Result.Invoice.Ref)
		assert.Equal(t, first.Matches[i].Result.Pass, second.Matches[i].Result.Pass)
	}
	assert.Equal(t, first.Discrepancies, second.Discrepancies)
}
