package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"soa-reconciliation-service/internal/matching"
	"soa-reconciliation-service/internal/repositories"
	"soa-reconciliation-service/internal/services"
)

type ReconciliationHandler struct {
	reconciliationService  *services.ReconciliationService
	acknowledgementService *services.AcknowledgementService
}

func NewReconciliationHandler(
	reconciliationService *services.ReconciliationService,
	acknowledgementService *services.AcknowledgementService,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService:  reconciliationService,
		acknowledgementService: acknowledgementService,
	}
}

func (h *ReconciliationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var request struct {
		StatementID  string         `json:"statement_id"`
		CompanyID    string         `json:"company_id"`
		MatchOptions map[string]any `json:"match_options"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if request.StatementID == "" || request.CompanyID == "" {
		respondWithError(w, http.StatusBadRequest, "Both statement_id and company_id are required")
		return
	}

	result, err := h.reconciliationService.Reconcile(request.StatementID, request.CompanyID, request.MatchOptions)
	if err != nil {
		var optErr *matching.InvalidOptionsError
		switch {
		case errors.As(err, &optErr):
			respondWithError(w, http.StatusBadRequest, optErr.Error())
		case errors.Is(err, repositories.ErrNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	batchID := vars["batch_id"]

	if batchID == "" {
		respondWithError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	result, err := h.reconciliationService.GetReconciliationReport(batchID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	discrepancyID, err := strconv.ParseInt(vars["discrepancy_id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid discrepancy ID")
		return
	}

	var request struct {
		Action string `json:"action"`
		Note   string `json:"note"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if request.UserID == "" {
		request.UserID = "system"
	}

	d, err := h.acknowledgementService.Acknowledge(discrepancyID, request.Action, request.Note, request.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrAlreadyAcknowledged):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrUnknownAckAction), errors.Is(err, services.ErrAckNoteRequired):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}
