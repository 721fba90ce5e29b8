package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/username/coinledger/backend/src/database"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/model"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/processors"
	"github.com/username/coinledger/backend/src/security/validation"
	"github.com/username/coinledger/backend/src/services"
)

type EntryHandler struct {
	hub   *services.EventHub
	cache *cache.Cache
}

func NewEntryHandler(hub *services.EventHub, statsCache *cache.Cache) *EntryHandler {
	return &EntryHandler{hub: hub, cache: statsCache}
}

// parseEntryFilter builds the filter pipeline inputs from query params.
// Ownership is not part of the filter; the store already scopes by user.
func parseEntryFilter(r *http.Request) (processors.EntryFilter, processors.SortDirection, error) {
	q := r.URL.Query()

	filter := processors.EntryFilter{
		Search: strings.TrimSpace(q.Get("search")),
	}

	if kind := q.Get("kind"); kind != "" {
		filter.Kind = models.EntryKind(strings.ToUpper(kind))
		if err := validation.ValidateEntryKind(filter.Kind); err != nil {
			return processors.EntryFilter{}, "", err
		}
	}

	switch outcome := processors.Outcome(strings.ToLower(q.Get("outcome"))); outcome {
	case processors.OutcomeAny, processors.OutcomeProfit, processors.OutcomeLoss, processors.OutcomeBreakeven:
		filter.Outcome = outcome
	default:
		return processors.EntryFilter{}, "", fmt.Errorf("unknown outcome filter '%s'", outcome)
	}

	if side := q.Get("side"); side != "" {
		filter.Side = models.TradeSide(strings.ToUpper(side))
		if err := validation.ValidateTradeSide(filter.Side); err != nil {
			return processors.EntryFilter{}, "", err
		}
	}

	if day := q.Get("day"); day != "" {
		if _, err := validation.ValidateDayString(day, "day"); err != nil {
			return processors.EntryFilter{}, "", err
		}
		filter.Day = day
	}

	dir := processors.SortDesc
	if q.Get("order") == "asc" {
		dir = processors.SortAsc
	}
	return filter, dir, nil
}

// resolveOwner picks the ledger being viewed: the caller's own by
// default, or another user's when the journal is shared. The toggle is
// exclusive; writes always target the caller's own ledger.
func resolveOwner(r *http.Request, userID int64) int64 {
	if raw := r.URL.Query().Get("owner"); raw != "" {
		if ownerID, err := strconv.ParseInt(raw, 10, 64); err == nil && ownerID > 0 {
			return ownerID
		}
	}
	return userID
}

// HandleListEntries returns the filtered, sorted, paginated entry list.
func (h *EntryHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	filter, dir, err := parseEntryFilter(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := model.ListEntries(database.DB, resolveOwner(r, userID))
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list entries", "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	filtered := processors.Apply(entries, filter, dir)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	sendJSON(w, map[string]interface{}{
		"entries":   filtered[start:end],
		"totalRows": total,
		"page":      page,
		"pageSize":  pageSize,
	}, http.StatusOK)
}

func (h *EntryHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	entry, err := model.GetEntryByID(database.DB, userID, entryID)
	if err != nil {
		if errors.Is(err, model.ErrEntryNotFound) {
			sendJSONError(w, "Entry not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to fetch entry", "entryID", entryID, "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, entry, http.StatusOK)
}

type entryRequest struct {
	Instrument    string  `json:"instrument"`
	EntryPrice    float64 `json:"entry_price"`
	ExitPrice     float64 `json:"exit_price"`
	Quantity      float64 `json:"quantity"`
	Amount        float64 `json:"amount"`
	Kind          string  `json:"kind"`
	Side          string  `json:"side"`
	Note          string  `json:"note"`
	AttachmentRef string  `json:"attachment_ref"`
}

func (req *entryRequest) validate() (models.LedgerEntry, error) {
	instrument := validation.SanitizeText(strings.TrimSpace(req.Instrument))
	note := validation.SanitizeText(validation.StripUnprintable(req.Note))

	if err := validation.ValidateStringNotEmpty(instrument, "Instrument"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateStringMaxLength(instrument, validation.MaxInstrumentLength, "Instrument"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateStringMaxLength(note, validation.MaxNoteLength, "Note"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateFiniteAmount(req.Amount, "Amount"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateFiniteAmount(req.EntryPrice, "Entry price"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateFiniteAmount(req.ExitPrice, "Exit price"); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := validation.ValidateFiniteAmount(req.Quantity, "Quantity"); err != nil {
		return models.LedgerEntry{}, err
	}

	kind := models.EntryKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if err := validation.ValidateEntryKind(kind); err != nil {
		return models.LedgerEntry{}, err
	}

	side := models.TradeSide(strings.ToUpper(strings.TrimSpace(req.Side)))
	if err := validation.ValidateTradeSide(side); err != nil {
		return models.LedgerEntry{}, err
	}
	if kind != models.KindTrade {
		side = ""
	}

	return models.LedgerEntry{
		Instrument:    instrument,
		EntryPrice:    req.EntryPrice,
		ExitPrice:     req.ExitPrice,
		Quantity:      req.Quantity,
		Amount:        req.Amount,
		Kind:          kind,
		Side:          side,
		Note:          note,
		AttachmentRef: strings.TrimSpace(req.AttachmentRef),
	}, nil
}

// invalidateStats drops every cached stats report for the user; any
// write to the ledger changes the derived numbers.
func (h *EntryHandler) invalidateStats(userID int64) {
	prefix := fmt.Sprintf("stats:%d:", userID)
	for key := range h.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			h.cache.Delete(key)
		}
	}
}

func (h *EntryHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry.UserID = userID

	if err := model.InsertEntry(database.DB, &entry); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to insert entry", "error", err)
		sendJSONError(w, "Failed to create entry", http.StatusInternalServerError)
		return
	}

	h.invalidateStats(userID)
	h.hub.Publish(services.Event{Type: "entry.created", UserID: userID, ID: entry.ID})
	sendJSON(w, entry, http.StatusCreated)
}

func (h *EntryHandler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	existing, err := model.GetEntryByID(database.DB, userID, entryID)
	if err != nil {
		if errors.Is(err, model.ErrEntryNotFound) {
			sendJSONError(w, "Entry not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to fetch entry for update", "entryID", entryID, "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Edit is a full replace of the mutable fields; pin state and
	// timestamps of creation survive.
	entry.ID = existing.ID
	entry.UserID = userID
	entry.Pinned = existing.Pinned
	entry.CreatedAt = existing.CreatedAt

	if err := model.UpdateEntry(database.DB, &entry); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update entry", "entryID", entryID, "error", err)
		sendJSONError(w, "Failed to update entry", http.StatusInternalServerError)
		return
	}

	h.invalidateStats(userID)
	h.hub.Publish(services.Event{Type: "entry.updated", UserID: userID, ID: entry.ID})
	sendJSON(w, entry, http.StatusOK)
}

func (h *EntryHandler) HandlePinEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Pinned bool `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := model.SetEntryPinned(database.DB, userID, entryID, req.Pinned); err != nil {
		if errors.Is(err, model.ErrEntryNotFound) {
			sendJSONError(w, "Entry not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to toggle pin", "entryID", entryID, "error", err)
		sendJSONError(w, "Failed to update entry", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(services.Event{Type: "entry.updated", UserID: userID, ID: entryID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteEntry(database.DB, userID, entryID); err != nil {
		if errors.Is(err, model.ErrEntryNotFound) {
			sendJSONError(w, "Entry not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete entry", "entryID", entryID, "error", err)
		sendJSONError(w, "Failed to delete entry", http.StatusInternalServerError)
		return
	}

	h.invalidateStats(userID)
	h.hub.Publish(services.Event{Type: "entry.deleted", UserID: userID, ID: entryID})
	w.WriteHeader(http.StatusNoContent)
}
