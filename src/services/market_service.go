package services

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/models"
)

const (
	orderBookDepth      = 5
	orderBookSpreadStep = 0.0005 // 0.05% per ladder rung

	cacheKeyGlobalStats = "market:global"
	cacheKeySentiment   = "market:sentiment"
	cacheKeyNews        = "market:news"
)

type marketServiceImpl struct {
	quoteProviders []QuoteProvider
	globalFetcher  GlobalStatsFetcher
	sentiment      SentimentFetcher
	news           NewsFetcher

	cache *gocache.Cache

	refreshInterval time.Duration
	stopRefresh     chan struct{}
	stopOnce        sync.Once
}

// NewMarketService assembles the market data pipeline. Quote providers
// are tried in the given order; the first one to supply a field wins.
func NewMarketService(quoteProviders []QuoteProvider, globalFetcher GlobalStatsFetcher, sentiment SentimentFetcher, news NewsFetcher, cacheTTL, refreshInterval time.Duration) MarketService {
	return &marketServiceImpl{
		quoteProviders:  quoteProviders,
		globalFetcher:   globalFetcher,
		sentiment:       sentiment,
		news:            news,
		cache:           gocache.New(cacheTTL, 2*cacheTTL),
		refreshInterval: refreshInterval,
		stopRefresh:     make(chan struct{}),
	}
}

// GetSnapshot returns the normalized snapshot for one instrument. Every
// provider may fail; the result is still a fully populated snapshot,
// flagged Synthetic when placeholders had to fill the gaps.
func (s *marketServiceImpl) GetSnapshot(symbol string) models.MarketSnapshot {
	key := "market:snapshot:" + symbol
	if cached, found := s.cache.Get(key); found {
		return cached.(models.MarketSnapshot)
	}

	sources := make([]PartialSnapshot, 0, len(s.quoteProviders))
	for _, provider := range s.quoteProviders {
		partial, err := provider.FetchQuote(symbol)
		if err != nil {
			logger.L.Warn("Quote provider failed, trying next", "provider", provider.Name(), "symbol", symbol, "error", err)
			continue
		}
		sources = append(sources, partial)
	}

	snap := Format(symbol, sources, time.Now())
	s.cache.Set(key, snap, gocache.DefaultExpiration)
	return snap
}

func (s *marketServiceImpl) GetGlobalStats() models.GlobalMarketStats {
	if cached, found := s.cache.Get(cacheKeyGlobalStats); found {
		return cached.(models.GlobalMarketStats)
	}

	stats, err := s.globalFetcher.FetchGlobalStats()
	if err != nil {
		logger.L.Warn("Global market stats fetch failed, serving synthetic values", "error", err)
		stats = syntheticGlobalStats(time.Now())
	}
	s.cache.Set(cacheKeyGlobalStats, stats, gocache.DefaultExpiration)
	return stats
}

func (s *marketServiceImpl) GetSentiment() models.SentimentIndex {
	if cached, found := s.cache.Get(cacheKeySentiment); found {
		return cached.(models.SentimentIndex)
	}

	index, err := s.sentiment.FetchSentiment()
	if err != nil {
		logger.L.Warn("Sentiment fetch failed, serving neutral placeholder", "error", err)
		index = models.SentimentIndex{Value: 50, Classification: "Neutral", Synthetic: true, FetchedAt: time.Now()}
	}
	if index.Value < 0 {
		index.Value = 0
	}
	if index.Value > 100 {
		index.Value = 100
	}
	s.cache.Set(cacheKeySentiment, index, gocache.DefaultExpiration)
	return index
}

func (s *marketServiceImpl) GetNews(limit int) []models.NewsItem {
	key := fmt.Sprintf("%s:%d", cacheKeyNews, limit)
	if cached, found := s.cache.Get(key); found {
		return cached.([]models.NewsItem)
	}

	items, err := s.news.FetchNews(limit)
	if err != nil {
		logger.L.Warn("News fetch failed, serving empty feed", "error", err)
		items = []models.NewsItem{}
	}
	s.cache.Set(key, items, gocache.DefaultExpiration)
	return items
}

// StartAutoRefresh keeps the tracked symbols and the dashboard feeds
// warm until Stop. Refreshing means evicting and re-fetching, so a
// provider outage during a refresh degrades to synthetic data rather
// than serving an error.
func (s *marketServiceImpl) StartAutoRefresh(symbols []string) {
	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cache.Flush()
				for _, symbol := range symbols {
					s.GetSnapshot(symbol)
				}
				s.GetGlobalStats()
				s.GetSentiment()
				logger.L.Debug("Periodic market refresh complete", "symbols", len(symbols))
			case <-s.stopRefresh:
				return
			}
		}
	}()
}

func (s *marketServiceImpl) Stop() {
	s.stopOnce.Do(func() { close(s.stopRefresh) })
}

// Format merges partial provider payloads into one snapshot. For every
// field the first source carrying a value wins; fields no source covers
// are filled with deterministic placeholders derived from the symbol,
// and the snapshot is flagged Synthetic. With zero sources the result
// is still fully populated.
func Format(symbol string, sources []PartialSnapshot, now time.Time) models.MarketSnapshot {
	seed := symbolSeed(symbol)
	synthetic := false

	pick := func(get func(PartialSnapshot) *float64, placeholder float64) float64 {
		for _, src := range sources {
			if v := get(src); v != nil {
				return *v
			}
		}
		synthetic = true
		return placeholder
	}

	price := pick(func(p PartialSnapshot) *float64 { return p.Price }, placeholderPrice(seed))
	changePct := pick(func(p PartialSnapshot) *float64 { return p.Change24hPercent }, placeholderChangePercent(seed))
	changeAbs := pick(func(p PartialSnapshot) *float64 { return p.Change24hAbs }, price*changePct/100)
	high := pick(func(p PartialSnapshot) *float64 { return p.High24h }, price*1.01)
	low := pick(func(p PartialSnapshot) *float64 { return p.Low24h }, price*0.99)
	volume := pick(func(p PartialSnapshot) *float64 { return p.Volume24h }, price*10_000)
	marketCap := pick(func(p PartialSnapshot) *float64 { return p.MarketCap }, price*10_000_000)

	return models.MarketSnapshot{
		Symbol:           symbol,
		Price:            price,
		Change24hAbs:     changeAbs,
		Change24hPercent: changePct,
		High24h:          high,
		Low24h:           low,
		Volume24h:        volume,
		MarketCap:        marketCap,
		OrderBook:        syntheticOrderBook(price, seed),
		Indicators:       syntheticIndicators(price, changePct, seed),
		Synthetic:        synthetic,
		FetchedAt:        now,
	}
}

// symbolSeed gives a stable pseudo-random value in [0,1) per symbol, so
// placeholder values are deterministic across calls.
func symbolSeed(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return float64(h.Sum32()%10_000) / 10_000
}

func placeholderPrice(seed float64) float64 {
	return 10 + seed*990
}

func placeholderChangePercent(seed float64) float64 {
	return seed*10 - 5
}

// syntheticOrderBook builds a fixed-depth bid/ask ladder spread in
// 0.05% steps around the last known price.
func syntheticOrderBook(price float64, seed float64) models.OrderBook {
	book := models.OrderBook{
		Bids: make([]models.OrderBookLevel, 0, orderBookDepth),
		Asks: make([]models.OrderBookLevel, 0, orderBookDepth),
	}
	for i := 1; i <= orderBookDepth; i++ {
		step := orderBookSpreadStep * float64(i)
		qty := (1 + seed) * float64(orderBookDepth-i+1)
		book.Bids = append(book.Bids, models.OrderBookLevel{Price: price * (1 - step), Quantity: qty})
		book.Asks = append(book.Asks, models.OrderBookLevel{Price: price * (1 + step), Quantity: qty})
	}
	return book
}

// syntheticIndicators approximates technicals from the last price.
// RSI stays inside [30,70] so the placeholder never screams an extreme
// signal at the user.
func syntheticIndicators(price, changePct float64, seed float64) models.Indicators {
	rsi := 50 + changePct*2
	if rsi < 30 {
		rsi = 30 + seed*5
	}
	if rsi > 70 {
		rsi = 70 - seed*5
	}
	return models.Indicators{
		RSI:            rsi,
		MA20:           price * (1 - changePct/100*0.4),
		MA50:           price * (1 - changePct/100*0.9),
		BollingerUpper: price * 1.02,
		BollingerLower: price * 0.98,
	}
}

func syntheticGlobalStats(now time.Time) models.GlobalMarketStats {
	return models.GlobalMarketStats{
		TotalMarketCapUSD: 2_500_000_000_000,
		TotalVolumeUSD:    90_000_000_000,
		BTCDominance:      52.0,
		MarketCapChange:   0,
		Synthetic:         true,
		FetchedAt:         now,
	}
}
