package services

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/storage"
)

type stubFetcher struct {
	rate  float64
	err   error
	calls int
}

func (f *stubFetcher) FetchRate() (models.RateSnapshot, error) {
	f.calls++
	if f.err != nil {
		return models.RateSnapshot{}, f.err
	}
	return models.RateSnapshot{
		Rate:      f.rate,
		UpdatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Source:    models.RateSourceLive,
	}, nil
}

func newTestRateService(fetcher RateFetcher) (*rateServiceImpl, *storage.MemoryKVStore) {
	store := storage.NewMemoryKVStore()
	svc := NewRateService(store, fetcher, "UAH", 41.5, 10*time.Minute, 10*time.Minute).(*rateServiceImpl)
	return svc, store
}

func TestGetRateFetchesAndCaches(t *testing.T) {
	fetcher := &stubFetcher{rate: 42.137}
	svc, _ := newTestRateService(fetcher)

	snap := svc.GetRate(false)
	assert.Equal(t, models.RateSourceLive, snap.Source)
	assert.InDelta(t, 42.14, snap.Rate, 1e-9) // rounded to 2dp
	assert.Equal(t, "UAH", snap.Currency)
	assert.Equal(t, 1, fetcher.calls)
}

func TestGetRateIdempotentWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{rate: 40.0}
	svc, _ := newTestRateService(fetcher)

	first := svc.GetRate(false)
	second := svc.GetRate(false)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second call within TTL must not hit the network")
}

func TestGetRateFreshCacheShortCircuitsFetch(t *testing.T) {
	fetcher := &stubFetcher{rate: 99.0}
	svc, store := newTestRateService(fetcher)

	cached := models.CachedRate{
		RateSnapshot: models.RateSnapshot{
			Rate:      40.0,
			Currency:  "UAH",
			UpdatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			Source:    models.RateSourceLive,
		},
		CachedAt: time.Now().Add(-3 * time.Minute),
	}
	require.NoError(t, store.Set(storage.KeyRateCache, cached))

	snap := svc.GetRate(false)
	assert.Equal(t, cached.RateSnapshot, snap)
	assert.Equal(t, 0, fetcher.calls)
}

func TestGetRateExpiredCacheTriggersFetch(t *testing.T) {
	fetcher := &stubFetcher{rate: 43.0}
	svc, store := newTestRateService(fetcher)

	cached := models.CachedRate{
		RateSnapshot: models.RateSnapshot{Rate: 40.0, Currency: "UAH", Source: models.RateSourceLive},
		CachedAt:     time.Now().Add(-11 * time.Minute),
	}
	require.NoError(t, store.Set(storage.KeyRateCache, cached))

	snap := svc.GetRate(false)
	assert.Equal(t, 1, fetcher.calls)
	assert.InDelta(t, 43.0, snap.Rate, 1e-9)
}

func TestGetRateFallsBackToStaleCache(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	svc, store := newTestRateService(fetcher)

	cached := models.CachedRate{
		RateSnapshot: models.RateSnapshot{Rate: 39.5, Currency: "UAH", Source: models.RateSourceLive},
		CachedAt:     time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, store.Set(storage.KeyRateCache, cached))

	snap := svc.GetRate(false)
	assert.InDelta(t, 39.5, snap.Rate, 1e-9)
	// The stale cache keeps its original source tag.
	assert.Equal(t, models.RateSourceLive, snap.Source)
}

func TestGetRateHardcodedFallback(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("timeout")}
	svc, _ := newTestRateService(fetcher)

	snap := svc.GetRate(false)
	assert.InDelta(t, 41.5, snap.Rate, 1e-9)
	assert.Equal(t, models.RateSourceFallback, snap.Source)
}

func TestGetRateInvalidFetchedRateDegrades(t *testing.T) {
	fetcher := &stubFetcher{rate: -3}
	svc, _ := newTestRateService(fetcher)

	snap := svc.GetRate(false)
	assert.Equal(t, models.RateSourceFallback, snap.Source)
	assert.InDelta(t, 41.5, snap.Rate, 1e-9)
}

func TestOverridePrecedenceOverForceRefresh(t *testing.T) {
	fetcher := &stubFetcher{rate: 50.0}
	svc, _ := newTestRateService(fetcher)

	require.NoError(t, svc.SetOverride(44.44))

	snap := svc.GetRate(true)
	assert.Equal(t, models.RateSourceOverride, snap.Source)
	assert.InDelta(t, 44.44, snap.Rate, 1e-9)
	assert.Equal(t, 0, fetcher.calls, "override must short-circuit even a forced refresh")
}

func TestSetOverrideRejectsInvalidValues(t *testing.T) {
	svc, _ := newTestRateService(&stubFetcher{rate: 50})

	assert.ErrorIs(t, svc.SetOverride(0), ErrInvalidRate)
	assert.ErrorIs(t, svc.SetOverride(-1), ErrInvalidRate)
	assert.ErrorIs(t, svc.SetOverride(math.NaN()), ErrInvalidRate)
	assert.ErrorIs(t, svc.SetOverride(math.Inf(1)), ErrInvalidRate)
}

func TestClearOverrideKeepsCache(t *testing.T) {
	fetcher := &stubFetcher{rate: 42.0}
	svc, store := newTestRateService(fetcher)

	// Warm the cache, then set and clear an override.
	_ = svc.GetRate(false)
	require.NoError(t, svc.SetOverride(99))
	require.NoError(t, svc.ClearOverride())

	var cached models.CachedRate
	found, err := store.Get(storage.KeyRateCache, &cached)
	require.NoError(t, err)
	assert.True(t, found, "clearing the override must not clear the cache")

	snap := svc.GetRate(false)
	assert.Equal(t, models.RateSourceLive, snap.Source)
	assert.InDelta(t, 42.0, snap.Rate, 1e-9)
	assert.Equal(t, 1, fetcher.calls)
}

func TestConvert(t *testing.T) {
	assert.InDelta(t, 415.0, Convert(10, 41.5), 1e-9)
	assert.Equal(t, 0.0, Convert(math.NaN(), 41.5))
	assert.Equal(t, 0.0, Convert(10, math.Inf(1)))
	assert.Equal(t, 0.0, Convert(math.Inf(-1), math.Inf(1)))
}
