package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soa-reconciliation-service/internal/matching"
	"soa-reconciliation-service/internal/models"
	"soa-reconciliation-service/internal/repositories"
)

type fakeStatementRepo struct {
	statement *models.SoaStatement
	lines     []*models.SoaLine
	getCalls  int
}

func (f *fakeStatementRepo) CreateStatement(tx *sql.Tx, st *models.SoaStatement) error { return nil }
func (f *fakeStatementRepo) InsertLine(tx *sql.Tx, line *models.SoaLine) error { return nil }

func (f *fakeStatementRepo) GetStatementByStatementID(statementID string) (*models.SoaStatement, error) {
	f.getCalls++
	if f.statement == nil || f.statement.StatementID != statementID {
		return nil, repositories.ErrNotFound
	}
	return f.statement, nil
}

func (f *fakeStatementRepo) GetLinesForStatement(statementRowID int64) ([]*models.SoaLine, error) {
	return f.lines, nil
}

type fakeInvoiceRepo struct {
	invoices []*models.Invoice
}

func (f *fakeInvoiceRepo) InsertInvoice(tx *sql.Tx, inv *models.Invoice) error { return nil }
func (f *fakeInvoiceRepo) GetInvoiceByID(id int64) (*models.Invoice, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeInvoiceRepo) GetUnmatchedInvoicesForCompany(companyID string) ([]*models.Invoice, error) {
	return f.invoices, nil
}

type fakeReconciliationRepo struct {
	run           *models.ReconciliationRun
	matches       []*models.SoaMatch
	discrepancies []*models.SoaDiscrepancy
	discrepancy   *models.SoaDiscrepancy
}

func (f *fakeReconciliationRepo) CreateRun(tx *sql.Tx, run *models.ReconciliationRun) error {
	return nil
}
func (f *fakeReconciliationRepo) GetRunByBatchID(batchID string) (*models.ReconciliationRun, error) {
	if f.run == nil || f.run.BatchID != batchID {
		return nil, repositories.ErrNotFound
	}
	return f.run, nil
}
func (f *fakeReconciliationRepo) UpdateRunStatus(tx *sql.Tx, id int64, status string) error {
	return nil
}
func (f *fakeReconciliationRepo) CreateMatch(tx *sql.Tx, m *models.SoaMatch) error { return nil }
func (f *fakeReconciliationRepo) CreateDiscrepancy(tx *sql.Tx, d *models.SoaDiscrepancy) error {
	return nil
}
func (f *fakeReconciliationRepo) CreateAuditEntry(tx *sql.Tx, audit *models.ReconciliationAudit) error {
	return nil
}
func (f *fakeReconciliationRepo) GetMatchesForRun(runID int64) ([]*models.SoaMatch, error) {
	return f.matches, nil
}
func (f *fakeReconciliationRepo) GetDiscrepanciesForRun(runID int64) ([]*models.SoaDiscrepancy, error) {
	return f.discrepancies, nil
}
func (f *fakeReconciliationRepo) GetDiscrepancyByID(id int64) (*models.SoaDiscrepancy, error) {
	if f.discrepancy == nil || f.discrepancy.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.discrepancy, nil
}
func (f *fakeReconciliationRepo) UpdateAcknowledgement(tx *sql.Tx, id int64, status, note string) error {
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(stmt *fakeStatementRepo, inv *fakeInvoiceRepo, rec *fakeReconciliationRepo) *ReconciliationService {
	return NewReconciliationService(nil, testLogger(), inv, stmt, rec)
}

func TestReconcile_InvalidOptionsFailBeforeAnyFetch(t *testing.T) {
	stmt := &fakeStatementRepo{}
	svc := newTestService(stmt, &fakeInvoiceRepo{}, &fakeReconciliationRepo{})

	_, err := svc.Reconcile("STMT-1", "COMP-1", map[string]any{"allow_partial": "yes"})
	require.Error(t, err)

	var optsErr *matching.InvalidOptionsError
	assert.True(t, errors.As(err, &optsErr))
	assert.Zero(t, stmt.getCalls, "options must be rejected before touching storage")
}

func TestReconcile_UnknownStatement(t *testing.T) {
	svc := newTestService(&fakeStatementRepo{}, &fakeInvoiceRepo{}, &fakeReconciliationRepo{})

	_, err := svc.Reconcile("STMT-MISSING", "COMP-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestReconcile_StatementOwnedByAnotherCompany(t *testing.T) {
	stmt := &fakeStatementRepo{
		statement: &models.SoaStatement{ID: 1, StatementID: "STMT-1", CompanyID: "COMP-1"},
	}
	svc := newTestService(stmt, &fakeInvoiceRepo{}, &fakeReconciliationRepo{})

	_, err := svc.Reconcile("STMT-1", "COMP-2", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to company")
}

func TestGetReconciliationReport(t *testing.T) {
	rec := &fakeReconciliationRepo{
		run: &models.ReconciliationRun{
			ID:          7,
			BatchID:     "REC-abc",
			StatementID: "STMT-1",
			CompanyID:   "COMP-1",
			Status:      models.RunStatusDone,
		},
		matches: []*models.SoaMatch{{RunID: 7, SoaLineID: 1, InvoiceID: 2, Pass: 1}},
		discrepancies: []*models.SoaDiscrepancy{
			{RunID: 7, Type: "NO_MATCH", Severity: "error", Description: "no candidate"},
		},
	}
	svc := newTestService(&fakeStatementRepo{}, &fakeInvoiceRepo{}, rec)

	result, err := svc.GetReconciliationReport("REC-abc")
	require.NoError(t, err)
	assert.Equal(t, "REC-abc", result.BatchID)
	assert.Equal(t, models.RunStatusDone, result.Status)
	assert.Len(t, result.Matches, 1)
	assert.Len(t, result.Discrepancies, 1)

	_, err = svc.GetReconciliationReport("REC-other")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDecodePayload(t *testing.T) {
	fields := decodePayload(json.RawMessage(`{"invoice_number":"INV-1","total_amount":100.10}`))
	assert.Equal(t, "INV-1", fields["invoice_number"])

	// Amounts must come back as json.Number, not float64, so exact decimal
	// values survive the round trip through storage.
	num, ok := fields["total_amount"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "100.10", num.String())

	assert.Empty(t, decodePayload(json.RawMessage(`{broken`)))
	assert.Empty(t, decodePayload(nil))
}

func TestRefConversions(t *testing.T) {
	id, err := refToID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = refToID("not-a-number")
	assert.Error(t, err)

	assert.Equal(t, sql.NullInt64{Int64: 42, Valid: true}, refToNullID("42"))
	assert.False(t, refToNullID("").Valid)
	assert.False(t, refToNullID("garbage").Valid)
}
