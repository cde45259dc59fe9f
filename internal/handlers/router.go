package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"soa-reconciliation-service/internal/config"
	"soa-reconciliation-service/internal/repositories"
	"soa-reconciliation-service/internal/services"
)

func SetupRouter(db *sql.DB, cfg *config.Config, logger *logrus.Logger) *mux.Router {
	invoiceRepo := repositories.NewInvoiceRepository(db)
	statementRepo := repositories.NewStatementRepository(db)
	reconciliationRepo := repositories.NewReconciliationRepository(db)

	reconciliationService := services.NewReconciliationService(db, logger, invoiceRepo, statementRepo, reconciliationRepo)
	ingestionService := services.NewDataIngestionService(db, logger, invoiceRepo, statementRepo)
	acknowledgementService := services.NewAcknowledgementService(db, logger, reconciliationRepo)

	reconciliationHandler := NewReconciliationHandler(reconciliationService, acknowledgementService)
	dataHandler := NewDataHandler(ingestionService)

	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	api.Use(loggingMiddleware(logger))
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/invoices", dataHandler.IngestInvoices).Methods(http.MethodPost)
	api.HandleFunc("/statements", dataHandler.IngestStatement).Methods(http.MethodPost)
	api.HandleFunc("/reconciliations", reconciliationHandler.Reconcile).Methods(http.MethodPost)
	api.HandleFunc("/reconciliations/{batch_id}", reconciliationHandler.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/discrepancies/{discrepancy_id}/acknowledge", reconciliationHandler.Acknowledge).Methods(http.MethodPost)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	return router
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Info("request handled")
		})
	}
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
	}
	respondWithJSON(w, http.StatusOK, response)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
