package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"soa-reconciliation-service/internal/services"
)

type DataHandler struct {
	ingestionService *services.DataIngestionService
}

func NewDataHandler(ingestionService *services.DataIngestionService) *DataHandler {
	return &DataHandler{ingestionService: ingestionService}
}

func (h *DataHandler) IngestInvoices(w http.ResponseWriter, r *http.Request) {
	var input services.InvoiceBatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.ingestionService.IngestInvoices(input)
	if err != nil {
		respondWithError(w, ingestionErrorStatus(err), err.Error())
		return
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, status, result)
}

func (h *DataHandler) IngestStatement(w http.ResponseWriter, r *http.Request) {
	var input services.StatementInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.ingestionService.IngestStatement(input)
	if err != nil {
		respondWithError(w, ingestionErrorStatus(err), err.Error())
		return
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, status, result)
}

func ingestionErrorStatus(err error) int {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
