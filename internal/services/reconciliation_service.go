package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"soa-reconciliation-service/internal/canonical"
	"soa-reconciliation-service/internal/matching"
	"soa-reconciliation-service/internal/models"
	"soa-reconciliation-service/internal/repositories"
)

type ReconciliationService struct {
	db                 *sql.DB
	logger             *logrus.Logger
	engine             *matching.Engine
	invoiceRepo        repositories.InvoiceRepository
	statementRepo      repositories.StatementRepository
	reconciliationRepo repositories.ReconciliationRepository
}

func NewReconciliationService(
	db *sql.DB,
	logger *logrus.Logger,
	invoiceRepo repositories.InvoiceRepository,
	statementRepo repositories.StatementRepository,
	reconciliationRepo repositories.ReconciliationRepository,
) *ReconciliationService {
	return &ReconciliationService{
		db:                 db,
		logger:             logger,
		engine:             matching.NewEngine(matching.DefaultConfig()),
		invoiceRepo:        invoiceRepo,
		statementRepo:      statementRepo,
		reconciliationRepo: reconciliationRepo,
	}
}

type ReconciliationResult struct {
	BatchID       string                   `json:"batch_id"`
	StatementID   string                   `json:"statement_id"`
	CompanyID     string                   `json:"company_id"`
	Status        string                   `json:"status"`
	Matches       []*models.SoaMatch       `json:"matches"`
	Discrepancies []*models.SoaDiscrepancy `json:"discrepancies"`
	Summary       *matching.Summary        `json:"summary,omitempty"`
}

// Reconcile runs a full statement-to-ledger reconciliation and persists the
// report. Match options are validated before anything is fetched; malformed
// options fail the whole call, while malformed stored records only degrade
// to discrepancies inside the run.
func (s *ReconciliationService) Reconcile(statementID, companyID string, rawOptions map[string]any) (*ReconciliationResult, error) {
	opts, err := matching.ParseOptions(rawOptions)
	if err != nil {
		return nil, err
	}

	statement, err := s.statementRepo.GetStatementByStatementID(statementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get statement %s: %w", statementID, err)
	}
	if statement.CompanyID != companyID {
		return nil, fmt.Errorf("statement %s does not belong to company %s", statementID, companyID)
	}

	lines, err := s.statementRepo.GetLinesForStatement(statement.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get statement lines: %w", err)
	}

	invoices, err := s.invoiceRepo.GetUnmatchedInvoicesForCompany(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unmatched invoices: %w", err)
	}

	rawLines := make([]canonical.RawSoaLineRecord, 0, len(lines))
	for _, line := range lines {
		rawLines = append(rawLines, canonical.RawSoaLineRecord{
			Ref:    strconv.FormatInt(line.ID, 10),
			Fields: decodePayload(line.Payload),
		})
	}

	rawInvoices := make([]canonical.RawInvoiceRecord, 0, len(invoices))
	for _, inv := range invoices {
		rawInvoices = append(rawInvoices, canonical.RawInvoiceRecord{
			Ref:    strconv.FormatInt(inv.ID, 10),
			Fields: decodePayload(inv.Payload),
		})
	}

	orchestrator := matching.NewOrchestrator(s.engine)
	report, err := orchestrator.Run(rawLines, rawInvoices, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to run reconciliation: %w", err)
	}

	result, err := s.persistReport(statement, report)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id":     result.BatchID,
		"statement_id": statementID,
		"company_id":   companyID,
		"matched":      report.Summary.Matched,
		"unmatched":    report.Summary.Unmatched,
	}).Info("reconciliation run completed")

	return result, nil
}

func (s *ReconciliationService) persistReport(statement *models.SoaStatement, report *matching.Report) (*ReconciliationResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := &models.ReconciliationRun{
		BatchID:     fmt.Sprintf("REC-%s", uuid.NewString()),
		StatementID: statement.StatementID,
		CompanyID:   statement.CompanyID,
		Status:      models.RunStatusMatching,
	}
	if err := s.reconciliationRepo.CreateRun(tx, run); err != nil {
		return nil, fmt.Errorf("failed to create reconciliation run: %w", err)
	}

	result := &ReconciliationResult{
		BatchID:     run.BatchID,
		StatementID: statement.StatementID,
		CompanyID:   statement.CompanyID,
		Summary:     &report.Summary,
	}

	for _, outcome := range report.Matches {
		lineID, err := refToID(outcome.Line.Ref)
		if err != nil {
			return nil, err
		}
		invoiceID, err := refToID(outcome.Result.Invoice.Ref)
		if err != nil {
			return nil, err
		}
		m := &models.SoaMatch{
			RunID:       run.ID,
			SoaLineID:   lineID,
			InvoiceID:   invoiceID,
			Pass:        int(outcome.Result.Pass),
			AmountDelta: outcome.Result.AmountDelta.String(),
			DayDelta:    outcome.Result.DayDelta,
		}
		if err := s.reconciliationRepo.CreateMatch(tx, m); err != nil {
			return nil, fmt.Errorf("failed to create match: %w", err)
		}
		result.Matches = append(result.Matches, m)
	}

	for _, d := range report.Discrepancies {
		row := &models.SoaDiscrepancy{
			RunID:       run.ID,
			Type:        string(d.Type),
			Severity:    string(d.Severity),
			Description: d.Description,
			SoaLineID:   refToNullID(d.SoaLineRef),
			InvoiceID:   refToNullID(d.InvoiceRef),
			AckStatus:   models.AckStatusPending,
		}
		if err := s.reconciliationRepo.CreateDiscrepancy(tx, row); err != nil {
			return nil, fmt.Errorf("failed to create discrepancy: %w", err)
		}
		result.Discrepancies = append(result.Discrepancies, row)
	}

	auditDetails, _ := json.Marshal(report.Summary)
	audit := &models.ReconciliationAudit{
		RunID:   run.ID,
		Action:  models.AuditActionReconciled,
		Details: auditDetails,
		UserID:  "system",
	}
	if err := s.reconciliationRepo.CreateAuditEntry(tx, audit); err != nil {
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}

	if err := s.reconciliationRepo.UpdateRunStatus(tx, run.ID, models.RunStatusDone); err != nil {
		return nil, fmt.Errorf("failed to update run status: %w", err)
	}
	run.Status = models.RunStatusDone
	result.Status = run.Status

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// GetReconciliationReport reloads a persisted run with its matches and
// discrepancies.
func (s *ReconciliationService) GetReconciliationReport(batchID string) (*ReconciliationResult, error) {
	run, err := s.reconciliationRepo.GetRunByBatchID(batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation run: %w", err)
	}

	matches, err := s.reconciliationRepo.GetMatchesForRun(run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	discrepancies, err := s.reconciliationRepo.GetDiscrepanciesForRun(run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancies: %w", err)
	}

	return &ReconciliationResult{
		BatchID:       run.BatchID,
		StatementID:   run.StatementID,
		CompanyID:     run.CompanyID,
		Status:        run.Status,
		Matches:       matches,
		Discrepancies: discrepancies,
	}, nil
}

// decodePayload decodes a stored payload document. Numbers decode as
// json.Number so amounts survive exactly. A corrupt document yields an empty
// field set, which the shape adapter reports as missing required fields.
func decodePayload(payload json.RawMessage) map[string]any {
	fields := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return map[string]any{}
	}
	return fields
}

func refToID(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed record reference %q: %w", ref, err)
	}
	return id, nil
}

func refToNullID(ref string) sql.NullInt64 {
	if ref == "" {
		return sql.NullInt64{}
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
