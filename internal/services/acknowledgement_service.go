package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"soa-reconciliation-service/internal/matching"
	"soa-reconciliation-service/internal/models"
	"soa-reconciliation-service/internal/repositories"
)

// Acknowledgement actions accepted from reviewers.
const (
	AckActionConfirm = "confirm"
	AckActionDispute = "dispute"
)

var (
	ErrUnknownAckAction     = errors.New("unknown acknowledgement action")
	ErrAlreadyAcknowledged  = errors.New("discrepancy already acknowledged")
	ErrAckNoteRequired      = errors.New("a note is required to confirm an error-severity discrepancy")
)

// AcknowledgementService records the human confirm/dispute decision on top
// of engine output. It is a pure state transition over persisted
// discrepancies; it never re-derives any matching logic.
type AcknowledgementService struct {
	db                 *sql.DB
	logger             *logrus.Logger
	reconciliationRepo repositories.ReconciliationRepository
}

func NewAcknowledgementService(
	db *sql.DB,
	logger *logrus.Logger,
	reconciliationRepo repositories.ReconciliationRepository,
) *AcknowledgementService {
	return &AcknowledgementService{
		db:                 db,
		logger:             logger,
		reconciliationRepo: reconciliationRepo,
	}
}

// Acknowledge transitions a pending discrepancy to confirmed or disputed.
// Error-severity discrepancies block a bare confirm; the reviewer has to
// leave a note.
func (s *AcknowledgementService) Acknowledge(discrepancyID int64, action, note, userID string) (*models.SoaDiscrepancy, error) {
	var status string
	switch action {
	case AckActionConfirm:
		status = models.AckStatusConfirmed
	case AckActionDispute:
		status = models.AckStatusDisputed
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAckAction, action)
	}

	d, err := s.reconciliationRepo.GetDiscrepancyByID(discrepancyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancy: %w", err)
	}

	if d.AckStatus != models.AckStatusPending {
		return nil, fmt.Errorf("%w: current status %s", ErrAlreadyAcknowledged, d.AckStatus)
	}
	if action == AckActionConfirm && d.Severity == string(matching.SeverityError) && note == "" {
		return nil, ErrAckNoteRequired
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.reconciliationRepo.UpdateAcknowledgement(tx, d.ID, status, note); err != nil {
		return nil, fmt.Errorf("failed to update acknowledgement: %w", err)
	}

	details, _ := json.Marshal(map[string]any{
		"discrepancy_id": d.ID,
		"action":         action,
	})
	audit := &models.ReconciliationAudit{
		RunID:   d.RunID,
		Action:  models.AuditActionAcknowledged,
		Details: details,
		UserID:  userID,
	}
	if err := s.reconciliationRepo.CreateAuditEntry(tx, audit); err != nil {
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	d.AckStatus = status
	d.AckNote = note

	s.logger.WithFields(logrus.Fields{
		"discrepancy_id": d.ID,
		"run_id":         d.RunID,
		"action":         action,
	}).Info("discrepancy acknowledged")

	return d, nil
}
