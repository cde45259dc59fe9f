package services

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"soa-reconciliation-service/internal/models"
	"soa-reconciliation-service/internal/repositories"
)

// DataIngestionService stores already-structured invoice and statement
// payloads. Payload documents are stored as received; shape validation
// happens once, at the canonical adapter boundary during reconciliation.
type DataIngestionService struct {
	db            *sql.DB
	logger        *logrus.Logger
	validate      *validator.Validate
	invoiceRepo   repositories.InvoiceRepository
	statementRepo repositories.StatementRepository
}

func NewDataIngestionService(
	db *sql.DB,
	logger *logrus.Logger,
	invoiceRepo repositories.InvoiceRepository,
	statementRepo repositories.StatementRepository,
) *DataIngestionService {
	return &DataIngestionService{
		db:            db,
		logger:        logger,
		validate:      validator.New(),
		invoiceRepo:   invoiceRepo,
		statementRepo: statementRepo,
	}
}

type InvoiceBatchInput struct {
	CompanyID string           `json:"company_id" validate:"required"`
	Invoices  []map[string]any `json:"invoices" validate:"required,min=1"`
}

type StatementInput struct {
	StatementID string           `json:"statement_id" validate:"required"`
	CompanyID   string           `json:"company_id" validate:"required"`
	VendorName  string           `json:"vendor_name"`
	Lines       []map[string]any `json:"lines" validate:"required,min=1"`
}

type IngestionResult struct {
	Success      bool     `json:"success"`
	RecordsCount int      `json:"records_count"`
	Errors       []string `json:"errors,omitempty"`
}

// IngestInvoices stores a batch of invoice payloads for a company. Records
// that cannot be serialized are reported per record; the batch commits only
// when every record was stored.
func (s *DataIngestionService) IngestInvoices(input InvoiceBatchInput) (*IngestionResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid invoice batch: %w", err)
	}

	result := &IngestionResult{Success: true}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, fields := range input.Invoices {
		payload, err := json.Marshal(fields)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invoice %d: %v", i, err))
			continue
		}

		invoice := &models.Invoice{
			CompanyID: input.CompanyID,
			Payload:   payload,
		}
		if err := s.invoiceRepo.InsertInvoice(tx, invoice); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invoice %d: %v", i, err))
			continue
		}
		result.RecordsCount++
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"company_id": input.CompanyID,
		"stored":     result.RecordsCount,
		"failed":     len(result.Errors),
	}).Info("invoice batch ingested")

	return result, nil
}

// IngestStatement stores a statement and its lines, preserving line order.
func (s *DataIngestionService) IngestStatement(input StatementInput) (*IngestionResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid statement: %w", err)
	}

	result := &IngestionResult{Success: true}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statement := &models.SoaStatement{
		StatementID: input.StatementID,
		CompanyID:   input.CompanyID,
		VendorName:  input.VendorName,
	}
	if err := s.statementRepo.CreateStatement(tx, statement); err != nil {
		return nil, fmt.Errorf("failed to create statement: %w", err)
	}

	for i, fields := range input.Lines {
		payload, err := json.Marshal(fields)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", i+1, err))
			continue
		}

		line := &models.SoaLine{
			StatementID: statement.ID,
			LineNo:      i + 1,
			Payload:     payload,
		}
		if err := s.statementRepo.InsertLine(tx, line); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", i+1, err))
			continue
		}
		result.RecordsCount++
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"statement_id": input.StatementID,
		"company_id":   input.CompanyID,
		"lines":        result.RecordsCount,
		"failed":       len(result.Errors),
	}).Info("statement ingested")

	return result, nil
}
