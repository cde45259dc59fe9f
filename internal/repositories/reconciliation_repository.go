package repositories

import (
	"database/sql"
	"time"

	"soa-reconciliation-service/internal/models"
)

type ReconciliationRepository interface {
	CreateRun(tx *sql.Tx, run *models.ReconciliationRun) error
	GetRunByBatchID(batchID string) (*models.ReconciliationRun, error)
	UpdateRunStatus(tx *sql.Tx, id int64, status string) error
	CreateMatch(tx *sql.Tx, m *models.SoaMatch) error
	CreateDiscrepancy(tx *sql.Tx, d *models.SoaDiscrepancy) error
	CreateAuditEntry(tx *sql.Tx, audit *models.ReconciliationAudit) error
	GetMatchesForRun(runID int64) ([]*models.SoaMatch, error)
	GetDiscrepanciesForRun(runID int64) ([]*models.SoaDiscrepancy, error)
	GetDiscrepancyByID(id int64) (*models.SoaDiscrepancy, error)
	UpdateAcknowledgement(tx *sql.Tx, id int64, status, note string) error
}

type reconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) CreateRun(tx *sql.Tx, run *models.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs (batch_id, statement_id, company_id, status)
		VALUES (?, ?, ?, ?)
	`
	result, err := tx.Exec(query, run.BatchID, run.StatementID, run.CompanyID, run.Status)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

func (r *reconciliationRepository) GetRunByBatchID(batchID string) (*models.ReconciliationRun, error) {
	run := &models.ReconciliationRun{}
	query := `
		SELECT id, batch_id, statement_id, company_id, status, created_at, updated_at
		FROM reconciliation_runs
		WHERE batch_id = ?
	`
	err := r.db.QueryRow(query, batchID).Scan(
		&run.ID,
		&run.BatchID,
		&run.StatementID,
		&run.CompanyID,
		&run.Status,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *reconciliationRepository) UpdateRunStatus(tx *sql.Tx, id int64, status string) error {
	query := `
		UPDATE reconciliation_runs
		SET status = ?,
		    updated_at = ?
		WHERE id = ?
	`
	result, err := tx.Exec(query, status, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reconciliationRepository) CreateMatch(tx *sql.Tx, m *models.SoaMatch) error {
	query := `
		INSERT INTO soa_matches (run_id, soa_line_id, invoice_id, pass, amount_delta, day_delta)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		m.RunID,
		m.SoaLineID,
		m.InvoiceID,
		m.Pass,
		m.AmountDelta,
		m.DayDelta,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (r *reconciliationRepository) CreateDiscrepancy(tx *sql.Tx, d *models.SoaDiscrepancy) error {
	query := `
		INSERT INTO soa_discrepancies (
			run_id, discrepancy_type, severity, description,
			soa_line_id, invoice_id, ack_status, ack_note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		d.RunID,
		d.Type,
		d.Severity,
		d.Description,
		d.SoaLineID,
		d.InvoiceID,
		d.AckStatus,
		d.AckNote,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (r *reconciliationRepository) CreateAuditEntry(tx *sql.Tx, audit *models.ReconciliationAudit) error {
	query := `
		INSERT INTO reconciliation_audit (run_id, action, details, user_id)
		VALUES (?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		audit.RunID,
		audit.Action,
		audit.Details,
		audit.UserID,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audit.ID = id
	return nil
}

func (r *reconciliationRepository) GetMatchesForRun(runID int64) ([]*models.SoaMatch, error) {
	query := `
		SELECT id, run_id, soa_line_id, invoice_id, pass, amount_delta, day_delta, created_at
		FROM soa_matches
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.SoaMatch
	for rows.Next() {
		m := &models.SoaMatch{}
		err := rows.Scan(
			&m.ID,
			&m.RunID,
			&m.SoaLineID,
			&m.InvoiceID,
			&m.Pass,
			&m.AmountDelta,
			&m.DayDelta,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *reconciliationRepository) GetDiscrepanciesForRun(runID int64) ([]*models.SoaDiscrepancy, error) {
	query := `
		SELECT id, run_id, discrepancy_type, severity, description,
		       soa_line_id, invoice_id, ack_status, ack_note, created_at, updated_at
		FROM soa_discrepancies
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discrepancies []*models.SoaDiscrepancy
	for rows.Next() {
		d := &models.SoaDiscrepancy{}
		err := rows.Scan(
			&d.ID,
			&d.RunID,
			&d.Type,
			&d.Severity,
			&d.Description,
			&d.SoaLineID,
			&d.InvoiceID,
			&d.AckStatus,
			&d.AckNote,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		discrepancies = append(discrepancies, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return discrepancies, nil
}

func (r *reconciliationRepository) GetDiscrepancyByID(id int64) (*models.SoaDiscrepancy, error) {
	d := &models.SoaDiscrepancy{}
	query := `
		SELECT id, run_id, discrepancy_type, severity, description,
		       soa_line_id, invoice_id, ack_status, ack_note, created_at, updated_at
		FROM soa_discrepancies
		WHERE id = ?
	`
	err := r.db.QueryRow(query, id).Scan(
		&d.ID,
		&d.RunID,
		&d.Type,
		&d.Severity,
		&d.Description,
		&d.SoaLineID,
		&d.InvoiceID,
		&d.AckStatus,
		&d.AckNote,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *reconciliationRepository) UpdateAcknowledgement(tx *sql.Tx, id int64, status, note string) error {
	query := `
		UPDATE soa_discrepancies
		SET ack_status = ?,
		    ack_note = ?,
		    updated_at = ?
		WHERE id = ?
	`
	result, err := tx.Exec(query, status, note, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
