package models

import "time"

// RateSource tags where a RateSnapshot value came from, so degraded data
// stays distinguishable from live data in the UI.
type RateSource string

const (
	RateSourceLive     RateSource = "live"
	RateSourceFallback RateSource = "fallback"
	RateSourceOverride RateSource = "override"
)

// RateSnapshot is the resolved USD to local-currency conversion rate.
type RateSnapshot struct {
	Rate      float64    `json:"rate"`
	Currency  string     `json:"currency"`
	UpdatedAt time.Time  `json:"updated_at"`
	Source    RateSource `json:"source"`
}

// CachedRate is the persisted cache entry. CachedAt is used only for
// freshness comparison and is never surfaced as UpdatedAt.
type CachedRate struct {
	RateSnapshot
	CachedAt time.Time `json:"cached_at"`
}

// RateOverride is the persisted manual override. It never expires on its
// own and is cleared only by explicit user action.
type RateOverride struct {
	Rate float64 `json:"rate"`
}
