package handlers

import (
	"errors"
	"net/http"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/services"
	"selfcheckout/internal/services/backend"
	"selfcheckout/internal/services/cart"
	"selfcheckout/internal/services/zones"
)

// StateHandler returns the current viewer state.
func StateHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		state := manager.State()
		if r.URL.Query().Get("frame") != "1" {
			state.Frame = nil
		}
		writeJSON(w, logger, http.StatusOK, state)
	}
}

// AdjustHandler applies a manual quantity. Escalated requests answer 202 and
// leave the cart untouched.
func AdjustHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req dto.AdjustRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ItemName == "" {
			http.Error(w, "item_name is required", http.StatusBadRequest)
			return
		}

		resp, err := manager.AdjustQuantity(req.ItemName, req.Quantity)
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			writeJSON(w, logger, http.StatusNotFound, dto.AdjustResponse{Outcome: dto.OutcomeNotFound, Total: manager.State().Total})
			return
		case errors.Is(err, cart.ErrInvalidQuantity):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			logger.Error("Adjust %s failed: %v", req.ItemName, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if resp.Outcome == dto.OutcomeEscalated {
			status = http.StatusAccepted
		}
		writeJSON(w, logger, status, resp)
	}
}

// ResetHandler returns an item to automatic counting.
func ResetHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req dto.ResetRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		line, err := manager.ResetOverride(req.ItemName)
		if errors.Is(err, cart.ErrItemNotFound) {
			http.Error(w, "Item not in cart", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, line)
	}
}

// IgnoreZoneHandler forwards an ignore request to the backend. The zone stays
// open until the backend acknowledges it.
func IgnoreZoneHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req dto.IgnoreZoneRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		err := manager.RequestIgnore(req.ZoneKey)
		switch {
		case errors.Is(err, zones.ErrZoneNotOpen):
			http.Error(w, "Zone is not open", http.StatusNotFound)
		case errors.Is(err, backend.ErrNotConnected):
			http.Error(w, "Detection backend unavailable", http.StatusServiceUnavailable)
		case err != nil:
			logger.Error("Ignore zone %s failed: %v", req.ZoneKey, err)
			http.Error(w, "Failed to send ignore request", http.StatusBadGateway)
		default:
			writeJSON(w, logger, http.StatusAccepted, map[string]string{"status": "pending", "zone_key": req.ZoneKey})
		}
	}
}

// HelpHandler raises a customer help request.
func HelpHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req dto.HelpRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		esc, err := manager.RequestHelp(req.Note)
		if err != nil {
			logger.Error("Help request not persisted: %v", err)
		}
		writeJSON(w, logger, http.StatusAccepted, esc)
	}
}
