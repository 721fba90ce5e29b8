package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/coinledger/backend/src/models"
)

func fptr(v float64) *float64 { return &v }

type stubQuoteProvider struct {
	name    string
	partial PartialSnapshot
	err     error
	calls   int
}

func (p *stubQuoteProvider) Name() string { return p.name }

func (p *stubQuoteProvider) FetchQuote(string) (PartialSnapshot, error) {
	p.calls++
	if p.err != nil {
		return PartialSnapshot{}, p.err
	}
	return p.partial, nil
}

type stubGlobalFetcher struct {
	stats models.GlobalMarketStats
	err   error
}

func (f *stubGlobalFetcher) FetchGlobalStats() (models.GlobalMarketStats, error) {
	return f.stats, f.err
}

type stubSentimentFetcher struct {
	index models.SentimentIndex
	err   error
}

func (f *stubSentimentFetcher) FetchSentiment() (models.SentimentIndex, error) {
	return f.index, f.err
}

type stubNewsFetcher struct {
	items []models.NewsItem
	err   error
}

func (f *stubNewsFetcher) FetchNews(int) ([]models.NewsItem, error) {
	return f.items, f.err
}

func newTestMarketService(providers []QuoteProvider, global *stubGlobalFetcher, sentiment *stubSentimentFetcher, news *stubNewsFetcher) MarketService {
	if global == nil {
		global = &stubGlobalFetcher{}
	}
	if sentiment == nil {
		sentiment = &stubSentimentFetcher{index: models.SentimentIndex{Value: 60, Classification: "Greed"}}
	}
	if news == nil {
		news = &stubNewsFetcher{}
	}
	return NewMarketService(providers, global, sentiment, news, 5*time.Minute, time.Hour)
}

func TestFormatFirstSourceWinsPerField(t *testing.T) {
	primary := PartialSnapshot{Price: fptr(100), High24h: fptr(105)}
	secondary := PartialSnapshot{Price: fptr(999), High24h: fptr(888), Low24h: fptr(95), MarketCap: fptr(1e9)}

	snap := Format("BTC", []PartialSnapshot{primary, secondary}, time.Now())

	assert.Equal(t, 100.0, snap.Price, "primary provider wins for price")
	assert.Equal(t, 105.0, snap.High24h)
	assert.Equal(t, 95.0, snap.Low24h, "secondary fills fields the primary lacks")
	assert.Equal(t, 1e9, snap.MarketCap)
}

func TestFormatMarksPlaceholdersSynthetic(t *testing.T) {
	full := PartialSnapshot{
		Price:            fptr(100),
		Change24hAbs:     fptr(2),
		Change24hPercent: fptr(2),
		High24h:          fptr(103),
		Low24h:           fptr(97),
		Volume24h:        fptr(5e6),
		MarketCap:        fptr(1e9),
	}
	snap := Format("BTC", []PartialSnapshot{full}, time.Now())
	assert.False(t, snap.Synthetic)

	partial := PartialSnapshot{Price: fptr(100)}
	snap = Format("BTC", []PartialSnapshot{partial}, time.Now())
	assert.True(t, snap.Synthetic)
	assert.Equal(t, 100.0, snap.Price)
}

func TestFormatTotalFailureStillFullyPopulated(t *testing.T) {
	snap := Format("ETH", nil, time.Now())

	assert.True(t, snap.Synthetic)
	assert.Equal(t, "ETH", snap.Symbol)
	assert.Greater(t, snap.Price, 0.0)
	assert.Greater(t, snap.High24h, snap.Low24h)
	assert.Greater(t, snap.Volume24h, 0.0)
	assert.Greater(t, snap.MarketCap, 0.0)
	require.Len(t, snap.OrderBook.Bids, orderBookDepth)
	require.Len(t, snap.OrderBook.Asks, orderBookDepth)
	assert.GreaterOrEqual(t, snap.Indicators.RSI, 30.0)
	assert.LessOrEqual(t, snap.Indicators.RSI, 70.0)
	assert.Greater(t, snap.Indicators.BollingerUpper, snap.Indicators.BollingerLower)
}

func TestFormatPlaceholdersAreDeterministic(t *testing.T) {
	now := time.Now()
	first := Format("SOL", nil, now)
	second := Format("SOL", nil, now)
	assert.Equal(t, first, second)
}

func TestFormatOrderBookLadderAroundPrice(t *testing.T) {
	snap := Format("BTC", []PartialSnapshot{{Price: fptr(1000)}}, time.Now())

	for i, bid := range snap.OrderBook.Bids {
		expected := 1000 * (1 - orderBookSpreadStep*float64(i+1))
		assert.InDelta(t, expected, bid.Price, 1e-9)
		assert.Greater(t, bid.Quantity, 0.0)
	}
	for i, ask := range snap.OrderBook.Asks {
		expected := 1000 * (1 + orderBookSpreadStep*float64(i+1))
		assert.InDelta(t, expected, ask.Price, 1e-9)
	}
}

func TestGetSnapshotSkipsFailingProviders(t *testing.T) {
	broken := &stubQuoteProvider{name: "broken", err: errors.New("timeout")}
	working := &stubQuoteProvider{name: "working", partial: PartialSnapshot{Price: fptr(250)}}
	svc := newTestMarketService([]QuoteProvider{broken, working}, nil, nil, nil)

	snap := svc.GetSnapshot("BTC")
	assert.Equal(t, 250.0, snap.Price)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, working.calls)
}

func TestGetSnapshotCachesResult(t *testing.T) {
	provider := &stubQuoteProvider{name: "p", partial: PartialSnapshot{Price: fptr(250)}}
	svc := newTestMarketService([]QuoteProvider{provider}, nil, nil, nil)

	first := svc.GetSnapshot("BTC")
	second := svc.GetSnapshot("BTC")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls, "second call within the TTL must be served from cache")
}

func TestGetGlobalStatsFallsBackToSynthetic(t *testing.T) {
	svc := newTestMarketService(nil, &stubGlobalFetcher{err: errors.New("down")}, nil, nil)

	stats := svc.GetGlobalStats()
	assert.True(t, stats.Synthetic)
	assert.Greater(t, stats.TotalMarketCapUSD, 0.0)
	assert.Greater(t, stats.BTCDominance, 0.0)
}

func TestGetSentimentFallsBackToNeutral(t *testing.T) {
	svc := newTestMarketService(nil, nil, &stubSentimentFetcher{err: errors.New("down")}, nil)

	index := svc.GetSentiment()
	assert.True(t, index.Synthetic)
	assert.Equal(t, 50, index.Value)
	assert.Equal(t, "Neutral", index.Classification)
}

func TestGetSentimentClampsValue(t *testing.T) {
	svc := newTestMarketService(nil, nil, &stubSentimentFetcher{index: models.SentimentIndex{Value: 140, Classification: "Extreme Greed"}}, nil)
	assert.Equal(t, 100, svc.GetSentiment().Value)
}

func TestGetNewsFallsBackToEmptyFeed(t *testing.T) {
	svc := newTestMarketService(nil, nil, nil, &stubNewsFetcher{err: errors.New("down")})

	items := svc.GetNews(5)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
