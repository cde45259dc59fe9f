package repositories

import (
	"database/sql"

	"soa-reconciliation-service/internal/models"
)

type InvoiceRepository interface {
	InsertInvoice(tx *sql.Tx, inv *models.Invoice) error
	GetInvoiceByID(id int64) (*models.Invoice, error)
	GetUnmatchedInvoicesForCompany(companyID string) ([]*models.Invoice, error)
}

type invoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) InsertInvoice(tx *sql.Tx, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (company_id, payload) VALUES (?, ?)
	`
	result, err := tx.Exec(query, inv.CompanyID, inv.Payload)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = id
	return nil
}

func (r *invoiceRepository) GetInvoiceByID(id int64) (*models.Invoice, error) {
	inv := &models.Invoice{}
	query := `
		SELECT id, company_id, payload, created_at, updated_at
		FROM invoices
		WHERE id = ?
	`
	err := r.db.QueryRow(query, id).Scan(
		&inv.ID,
		&inv.CompanyID,
		&inv.Payload,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetUnmatchedInvoicesForCompany returns the company's invoices that no
// reconciliation run has consumed yet. These form the candidate pool for a
// new run.
func (r *invoiceRepository) GetUnmatchedInvoicesForCompany(companyID string) ([]*models.Invoice, error) {
	query := `
		SELECT i.id, i.company_id, i.payload, i.created_at, i.updated_at
		FROM invoices i
		LEFT JOIN soa_matches sm ON i.id = sm.invoice_id
		WHERE sm.id IS NULL
		AND i.company_id = ?
		ORDER BY i.id
	`
	rows, err := r.db.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv := &models.Invoice{}
		err := rows.Scan(
			&inv.ID,
			&inv.CompanyID,
			&inv.Payload,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}
