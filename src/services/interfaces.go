package services

import (
	"errors"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

// Default settings for the derived-stats response cache shared by the
// handlers (see main.go).
const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// Common service errors.
var (
	ErrInvalidRate       = errors.New("rate must be a finite number greater than zero")
	ErrAttachmentTooBig  = errors.New("attachment exceeds the maximum allowed size")
	ErrUnsupportedImage  = errors.New("attachment is not a supported image format")
	ErrAttachmentMissing = errors.New("attachment not found")
)

// RateService resolves the USD to local-currency conversion rate.
// GetRate never fails: every tier of the resolution chain has a
// documented fallback, so callers only need to inspect Source to tell
// degraded data from live data.
type RateService interface {
	GetRate(forceRefresh bool) models.RateSnapshot
	SetOverride(rate float64) error
	ClearOverride() error
	StartAutoRefresh()
	Stop()
}

// MarketService assembles normalized market snapshots from the upstream
// provider chain. Format never returns a partial result; total upstream
// failure yields a fully populated synthetic snapshot.
type MarketService interface {
	GetSnapshot(symbol string) models.MarketSnapshot
	GetGlobalStats() models.GlobalMarketStats
	GetSentiment() models.SentimentIndex
	GetNews(limit int) []models.NewsItem
	StartAutoRefresh(symbols []string)
	Stop()
}
