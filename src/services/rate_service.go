package services

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/storage"
	"github.com/username/coinledger/backend/src/utils"
)

// RateFetcher fetches a live rate from the remote provider. Swapped for
// a stub in tests.
type RateFetcher interface {
	FetchRate() (models.RateSnapshot, error)
}

type rateProviderResponse struct {
	Rate      float64 `json:"rate"`
	UpdatedAt string  `json:"updatedAt"`
	Source    string  `json:"source"`
}

// httpRateFetcher queries the rate provider endpoint with a no-cache
// directive and a bounded timeout.
type httpRateFetcher struct {
	client *http.Client
	url    string
}

func NewHTTPRateFetcher(url string, timeout time.Duration) RateFetcher {
	return &httpRateFetcher{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

func (f *httpRateFetcher) FetchRate() (models.RateSnapshot, error) {
	req, err := http.NewRequest("GET", f.url, nil)
	if err != nil {
		return models.RateSnapshot{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.RateSnapshot{}, fmt.Errorf("rate provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.RateSnapshot{}, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var payload rateProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.RateSnapshot{}, fmt.Errorf("failed to decode rate provider response: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339, payload.UpdatedAt)
	if err != nil {
		updatedAt = time.Now()
	}

	return models.RateSnapshot{
		Rate:      payload.Rate,
		UpdatedAt: updatedAt,
		Source:    models.RateSourceLive,
	}, nil
}

type rateServiceImpl struct {
	store    storage.KVStore
	fetcher  RateFetcher
	currency string
	fallback float64
	ttl      time.Duration

	refreshInterval time.Duration
	stopRefresh     chan struct{}
	stopOnce        sync.Once

	mu  sync.Mutex
	now func() time.Time // injectable clock for tests
}

// NewRateService builds the rate resolver. The KV store is injected so
// the cache and override live wherever the caller decides (sqlite in
// production, memory in tests).
func NewRateService(store storage.KVStore, fetcher RateFetcher, currency string, fallback float64, ttl, refreshInterval time.Duration) RateService {
	return &rateServiceImpl{
		store:           store,
		fetcher:         fetcher,
		currency:        currency,
		fallback:        round2(fallback),
		ttl:             ttl,
		refreshInterval: refreshInterval,
		stopRefresh:     make(chan struct{}),
		now:             time.Now,
	}
}

// GetRate resolves the conversion rate through the precedence chain:
// override, fresh cache, live fetch, stale cache, hardcoded fallback.
// Network errors never escape; the worst case is a Fallback snapshot.
func (s *rateServiceImpl) GetRate(forceRefresh bool) models.RateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Manual override wins over everything, including forceRefresh.
	var override models.RateOverride
	if found, err := s.store.Get(storage.KeyRateOverride, &override); err == nil && found {
		if validRate(override.Rate) {
			return models.RateSnapshot{
				Rate:      round2(override.Rate),
				Currency:  s.currency,
				UpdatedAt: s.now(),
				Source:    models.RateSourceOverride,
			}
		}
		logger.L.Warn("Stored rate override is invalid, ignoring it", "rate", override.Rate)
	}

	// 2. Fresh cache short-circuits the network unless a refresh was forced.
	var cached models.CachedRate
	cacheFound := false
	if found, err := s.store.Get(storage.KeyRateCache, &cached); err == nil && found {
		cacheFound = validRate(cached.Rate)
	}
	if !forceRefresh && cacheFound && s.now().Sub(cached.CachedAt) < s.ttl {
		return cached.RateSnapshot
	}

	// 3. Live fetch.
	snap, err := s.fetcher.FetchRate()
	if err == nil && validRate(snap.Rate) {
		snap.Rate = round2(snap.Rate)
		snap.Currency = s.currency
		snap.Source = models.RateSourceLive
		entry := models.CachedRate{RateSnapshot: snap, CachedAt: s.now()}
		if setErr := s.store.Set(storage.KeyRateCache, entry); setErr != nil {
			logger.L.Error("Failed to persist rate cache entry", "error", setErr)
		}
		return snap
	}
	if err != nil {
		logger.L.Warn("Rate fetch failed, degrading to cached or fallback value", "error", err)
	} else {
		logger.L.Warn("Rate provider returned an invalid rate, degrading", "rate", snap.Rate)
	}

	// 4. Stale cache, source preserved from the cached entry.
	if cacheFound {
		return cached.RateSnapshot
	}

	// 5. Hardcoded constant.
	return models.RateSnapshot{
		Rate:      s.fallback,
		Currency:  s.currency,
		UpdatedAt: s.now(),
		Source:    models.RateSourceFallback,
	}
}

// SetOverride persists a manual rate. Invalid values are rejected rather
// than stored; the override key is distinct from the cache key.
func (s *rateServiceImpl) SetOverride(rate float64) error {
	if !validRate(rate) {
		return ErrInvalidRate
	}
	return s.store.Set(storage.KeyRateOverride, models.RateOverride{Rate: round2(rate)})
}

// ClearOverride removes the override only; the cache entry survives.
func (s *rateServiceImpl) ClearOverride() error {
	return s.store.Delete(storage.KeyRateOverride)
}

// StartAutoRefresh keeps the cache warm on a fixed interval until Stop.
func (s *rateServiceImpl) StartAutoRefresh() {
	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap := s.GetRate(true)
				logger.L.Debug("Periodic rate refresh", "rate", snap.Rate, "source", snap.Source)
			case <-s.stopRefresh:
				return
			}
		}
	}()
}

func (s *rateServiceImpl) Stop() {
	s.stopOnce.Do(func() { close(s.stopRefresh) })
}

// Convert applies the rate to a USD amount. Non-finite input converts
// to 0 rather than propagating NaN into the UI.
func Convert(amountUSD, rate float64) float64 {
	if math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) ||
		math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	result := amountUSD * rate
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate > 0
}

func round2(v float64) float64 {
	return utils.RoundFloat(v, 2)
}
