package repositories

import (
	"database/sql"

	"soa-reconciliation-service/internal/models"
)

type StatementRepository interface {
	CreateStatement(tx *sql.Tx, st *models.SoaStatement) error
	InsertLine(tx *sql.Tx, line *models.SoaLine) error
	GetStatementByStatementID(statementID string) (*models.SoaStatement, error)
	GetLinesForStatement(statementRowID int64) ([]*models.SoaLine, error)
}

type statementRepository struct {
	db *sql.DB
}

func NewStatementRepository(db *sql.DB) StatementRepository {
	return &statementRepository{db: db}
}

func (r *statementRepository) CreateStatement(tx *sql.Tx, st *models.SoaStatement) error {
	query := `
		INSERT INTO soa_statements (statement_id, company_id, vendor_name)
		VALUES (?, ?, ?)
	`
	result, err := tx.Exec(query, st.StatementID, st.CompanyID, st.VendorName)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = id
	return nil
}

func (r *statementRepository) InsertLine(tx *sql.Tx, line *models.SoaLine) error {
	query := `
		INSERT INTO soa_lines (statement_id, line_no, payload)
		VALUES (?, ?, ?)
	`
	result, err := tx.Exec(query, line.StatementID, line.LineNo, line.Payload)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	line.ID = id
	return nil
}

func (r *statementRepository) GetStatementByStatementID(statementID string) (*models.SoaStatement, error) {
	st := &models.SoaStatement{}
	query := `
		SELECT id, statement_id, company_id, vendor_name, created_at
		FROM soa_statements
		WHERE statement_id = ?
	`
	err := r.db.QueryRow(query, statementID).Scan(
		&st.ID,
		&st.StatementID,
		&st.CompanyID,
		&st.VendorName,
		&st.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetLinesForStatement returns lines in statement order. Reconciliation
// output depends on this order because the invoice pool shrinks as lines are
// consumed.
func (r *statementRepository) GetLinesForStatement(statementRowID int64) ([]*models.SoaLine, error) {
	query := `
		SELECT id, statement_id, line_no, payload, created_at
		FROM soa_lines
		WHERE statement_id = ?
		ORDER BY line_no
	`
	rows, err := r.db.Query(query, statementRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.SoaLine
	for rows.Next() {
		line := &models.SoaLine{}
		err := rows.Scan(
			&line.ID,
			&line.StatementID,
			&line.LineNo,
			&line.Payload,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
