package handlers

import (
	"net/http"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/username/coinledger/backend/src/database"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/model"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/processors"
	"github.com/username/coinledger/backend/src/services"
)

type StatsHandler struct {
	rateService services.RateService
	cache       *cache.Cache
}

func NewStatsHandler(rateService services.RateService, statsCache *cache.Cache) *StatsHandler {
	return &StatsHandler{rateService: rateService, cache: statsCache}
}

type statsResponse struct {
	Stats           models.DerivedStats `json:"stats"`
	Balance         float64             `json:"balance"`
	BalanceLocal    float64             `json:"balance_local"`
	Rate            models.RateSnapshot `json:"rate"`
	FilteredEntries int                 `json:"filtered_entries"`
}

// HandleGetStats aggregates the user's filtered ledger. Results are
// cached per user and filter set; ledger writes flush the user's keys.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	filter, _, err := parseEntryFilter(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ownerID := resolveOwner(r, userID)
	cacheKey := statsCacheKey(ownerID, r)
	if cached, found := h.cache.Get(cacheKey); found {
		sendJSON(w, cached, http.StatusOK)
		return
	}

	entries, err := model.ListEntries(database.DB, ownerID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list entries for stats", "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	// Streak math needs the newest-first ordering regardless of the
	// sort the user picked for the table view.
	filtered := processors.Apply(entries, filter, processors.SortDesc)
	stats := processors.Aggregate(filtered)
	balance := processors.Balance(entries)

	rate := h.rateService.GetRate(false)
	response := statsResponse{
		Stats:           stats,
		Balance:         balance,
		BalanceLocal:    services.Convert(balance, rate.Rate),
		Rate:            rate,
		FilteredEntries: len(filtered),
	}

	h.cache.Set(cacheKey, response, cache.DefaultExpiration)
	sendJSON(w, response, http.StatusOK)
}

func statsCacheKey(userID int64, r *http.Request) string {
	q := r.URL.Query()
	return "stats:" + strconv.FormatInt(userID, 10) + ":" +
		q.Get("search") + "|" + q.Get("kind") + "|" + q.Get("outcome") + "|" +
		q.Get("side") + "|" + q.Get("day")
}
