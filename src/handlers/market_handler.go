package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/services"
)

// DefaultMarketSymbols is the watchlist served when the client does not
// ask for specific instruments.
var DefaultMarketSymbols = []string{"BTC", "ETH", "SOL", "BNB", "XRP"}

const maxOverviewSymbols = 20

type MarketHandler struct {
	marketService services.MarketService
}

func NewMarketHandler(marketService services.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// HandleGetOverview returns one snapshot per requested symbol plus the
// market-wide stats and sentiment for the dashboard panel.
func (h *MarketHandler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	symbols := DefaultMarketSymbols
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		symbols = symbols[:0:0]
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s != "" {
				symbols = append(symbols, s)
			}
			if len(symbols) == maxOverviewSymbols {
				break
			}
		}
		if len(symbols) == 0 {
			symbols = DefaultMarketSymbols
		}
	}

	snapshots := make([]models.MarketSnapshot, 0, len(symbols))
	for _, symbol := range symbols {
		snapshots = append(snapshots, h.marketService.GetSnapshot(symbol))
	}

	sendJSON(w, map[string]interface{}{
		"snapshots": snapshots,
		"global":    h.marketService.GetGlobalStats(),
		"sentiment": h.marketService.GetSentiment(),
	}, http.StatusOK)
}

func (h *MarketHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		sendJSONError(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}
	sendJSON(w, h.marketService.GetSnapshot(symbol), http.StatusOK)
}

func (h *MarketHandler) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}
	sendJSON(w, h.marketService.GetNews(limit), http.StatusOK)
}

func (h *MarketHandler) HandleGetSentiment(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.marketService.GetSentiment(), http.StatusOK)
}
