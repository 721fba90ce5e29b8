package models

import "time"

// OrderBookLevel is one rung of the bid or ask ladder.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a fixed-size synthetic ladder around the last known price.
type OrderBook struct {
	Bids []OrderBookLevel `json:"bids"`
	Asks []OrderBookLevel `json:"asks"`
}

// Indicators carries placeholder technical indicators. When no real
// indicator data is available these are approximations derived from the
// last price, and the snapshot is flagged Synthetic.
type Indicators struct {
	RSI            float64 `json:"rsi"`
	MA20           float64 `json:"ma20"`
	MA50           float64 `json:"ma50"`
	BollingerUpper float64 `json:"bollinger_upper"`
	BollingerLower float64 `json:"bollinger_lower"`
}

// MarketSnapshot is the normalized per-instrument view assembled from
// heterogeneous upstream payloads. Synthetic is true when at least one
// field was filled from a placeholder instead of an upstream source.
type MarketSnapshot struct {
	Symbol           string     `json:"symbol"`
	Price            float64    `json:"price"`
	Change24hAbs     float64    `json:"change_24h_abs"`
	Change24hPercent float64    `json:"change_24h_percent"`
	High24h          float64    `json:"high_24h"`
	Low24h           float64    `json:"low_24h"`
	Volume24h        float64    `json:"volume_24h"`
	MarketCap        float64    `json:"market_cap"`
	OrderBook        OrderBook  `json:"order_book"`
	Indicators       Indicators `json:"indicators"`
	Synthetic        bool       `json:"synthetic"`
	FetchedAt        time.Time  `json:"fetched_at"`
}

// GlobalMarketStats summarizes the whole market (total cap, dominance).
type GlobalMarketStats struct {
	TotalMarketCapUSD float64   `json:"total_market_cap_usd"`
	TotalVolumeUSD    float64   `json:"total_volume_usd"`
	BTCDominance      float64   `json:"btc_dominance"`
	MarketCapChange   float64   `json:"market_cap_change_24h"`
	Synthetic         bool      `json:"synthetic"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// SentimentIndex is the fear & greed style sentiment reading.
type SentimentIndex struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Synthetic      bool      `json:"synthetic"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// NewsItem is one normalized news feed entry.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
