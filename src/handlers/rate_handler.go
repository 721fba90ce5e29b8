package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/services"
)

type RateHandler struct {
	rateService services.RateService
}

func NewRateHandler(rateService services.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// HandleGetRate resolves the active conversion rate. ?refresh=true
// bypasses the fresh-cache tier; an override still wins.
func (h *RateHandler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"
	snap := h.rateService.GetRate(forceRefresh)
	sendJSON(w, snap, http.StatusOK)
}

func (h *RateHandler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.rateService.SetOverride(req.Rate); err != nil {
		if errors.Is(err, services.ErrInvalidRate) {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to persist rate override", "error", err)
		sendJSONError(w, "Failed to store rate override", http.StatusInternalServerError)
		return
	}

	logger.InfoFromContext(r.Context(), "Rate override set", "rate", req.Rate)
	sendJSON(w, h.rateService.GetRate(false), http.StatusOK)
}

func (h *RateHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.rateService.ClearOverride(); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to clear rate override", "error", err)
		sendJSONError(w, "Failed to clear rate override", http.StatusInternalServerError)
		return
	}
	logger.InfoFromContext(r.Context(), "Rate override cleared")
	sendJSON(w, h.rateService.GetRate(false), http.StatusOK)
}
