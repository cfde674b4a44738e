package handlers

import (
	"errors"
	"net/http"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/repository"
	"selfcheckout/internal/services"
)

// Flusher writes buffered records to storage.
type Flusher interface {
	Flush()
}

// EscalationsHandler lists escalations, pending only unless ?all=1.
func EscalationsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		q := r.URL.Query()
		filter := &dto.EscalationFilter{
			PendingOnly: q.Get("all") != "1",
			Limit:       atoiDefault(q.Get("limit"), 100),
		}

		escalations, err := manager.Assistance().List(filter)
		if err != nil {
			logger.Error("Failed to list escalations: %v", err)
			http.Error(w, "Failed to retrieve escalations", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, escalations)
	}
}

// ResolveEscalationHandler closes the escalation given by ?id=.
func ResolveEscalationHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		err := manager.Assistance().Resolve(id)
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Escalation not found or already resolved", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Failed to resolve escalation %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "resolved", "id": id})
	}
}

// AdjustmentsHandler lists the manual adjustment audit trail. Buffered
// records are flushed first so the listing is current.
func AdjustmentsHandler(repo repository.AdjustmentRepository, buffer Flusher, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		if buffer != nil {
			buffer.Flush()
		}
		q := r.URL.Query()
		filter := &dto.AdjustmentFilter{
			ItemName: q.Get("item"),
			Limit:    atoiDefault(q.Get("limit"), 100),
		}

		adjustments, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Failed to list adjustments: %v", err)
			http.Error(w, "Failed to retrieve adjustments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, adjustments)
	}
}
