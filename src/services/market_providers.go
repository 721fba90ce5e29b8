package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/username/coinledger/backend/src/models"
)

// PartialSnapshot is one provider's contribution to a market snapshot.
// Nil fields mean the provider does not carry that value; the formatter
// merges contributions field by field in provider order.
type PartialSnapshot struct {
	Price            *float64
	Change24hAbs     *float64
	Change24hPercent *float64
	High24h          *float64
	Low24h           *float64
	Volume24h        *float64
	MarketCap        *float64
}

// QuoteProvider fetches a per-instrument quote from one upstream API.
// Each provider is independently fail-able.
type QuoteProvider interface {
	Name() string
	FetchQuote(symbol string) (PartialSnapshot, error)
}

// GlobalStatsFetcher fetches market-wide totals (cap, volume, dominance).
type GlobalStatsFetcher interface {
	FetchGlobalStats() (models.GlobalMarketStats, error)
}

// SentimentFetcher fetches the fear & greed index.
type SentimentFetcher interface {
	FetchSentiment() (models.SentimentIndex, error)
}

// NewsFetcher fetches the latest news feed items.
type NewsFetcher interface {
	FetchNews(limit int) ([]models.NewsItem, error)
}

// newAPIClient builds the shared HTTP client for upstream market APIs.
// The cookie jar matters for providers that set session cookies on the
// first request and throttle jarless clients.
func newAPIClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{Timeout: timeout, Jar: jar}
}

func getJSON(client *http.Client, rawURL string, dest any) error {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
	}
	return nil
}

// --- CoinGecko ---

// coinGeckoIDs maps ticker symbols to CoinGecko coin ids for the
// instruments the dashboard tracks. Unknown symbols fall back to the
// lowercased symbol, which works for many smaller listings.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TON":   "the-open-network",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
}

type coinGeckoMarketRow struct {
	CurrentPrice             *float64 `json:"current_price"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	TotalVolume              *float64 `json:"total_volume"`
	MarketCap                *float64 `json:"market_cap"`
	PriceChange24h           *float64 `json:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

type coinGeckoProvider struct {
	client  *http.Client
	baseURL string
}

func NewCoinGeckoProvider(baseURL string, timeout time.Duration) QuoteProvider {
	return &coinGeckoProvider{client: newAPIClient(timeout), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (p *coinGeckoProvider) Name() string { return "coingecko" }

func (p *coinGeckoProvider) FetchQuote(symbol string) (PartialSnapshot, error) {
	id, ok := coinGeckoIDs[strings.ToUpper(symbol)]
	if !ok {
		id = strings.ToLower(symbol)
	}
	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s", p.baseURL, url.QueryEscape(id))

	var rows []coinGeckoMarketRow
	if err := getJSON(p.client, endpoint, &rows); err != nil {
		return PartialSnapshot{}, err
	}
	if len(rows) == 0 {
		return PartialSnapshot{}, fmt.Errorf("coingecko returned no rows for %q", id)
	}

	row := rows[0]
	return PartialSnapshot{
		Price:            row.CurrentPrice,
		Change24hAbs:     row.PriceChange24h,
		Change24hPercent: row.PriceChangePercentage24h,
		High24h:          row.High24h,
		Low24h:           row.Low24h,
		Volume24h:        row.TotalVolume,
		MarketCap:        row.MarketCap,
	}, nil
}

// --- Binance (secondary quote source, no market cap) ---

type binanceTicker struct {
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	QuoteVolume        string `json:"quoteVolume"`
}

type binanceProvider struct {
	client  *http.Client
	baseURL string
}

func NewBinanceProvider(baseURL string, timeout time.Duration) QuoteProvider {
	return &binanceProvider{client: newAPIClient(timeout), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (p *binanceProvider) Name() string { return "binance" }

func (p *binanceProvider) FetchQuote(symbol string) (PartialSnapshot, error) {
	pair := strings.ToUpper(symbol) + "USDT"
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", p.baseURL, url.QueryEscape(pair))

	var ticker binanceTicker
	if err := getJSON(p.client, endpoint, &ticker); err != nil {
		return PartialSnapshot{}, err
	}

	return PartialSnapshot{
		Price:            parseOptFloat(ticker.LastPrice),
		Change24hAbs:     parseOptFloat(ticker.PriceChange),
		Change24hPercent: parseOptFloat(ticker.PriceChangePercent),
		High24h:          parseOptFloat(ticker.HighPrice),
		Low24h:           parseOptFloat(ticker.LowPrice),
		Volume24h:        parseOptFloat(ticker.QuoteVolume),
	}, nil
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// --- CoinGecko /global ---

type coinGeckoGlobalResponse struct {
	Data struct {
		TotalMarketCap      map[string]float64 `json:"total_market_cap"`
		TotalVolume         map[string]float64 `json:"total_volume"`
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		MarketCapChange24h  float64            `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

type coinGeckoGlobalFetcher struct {
	client  *http.Client
	baseURL string
}

func NewCoinGeckoGlobalFetcher(baseURL string, timeout time.Duration) GlobalStatsFetcher {
	return &coinGeckoGlobalFetcher{client: newAPIClient(timeout), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (f *coinGeckoGlobalFetcher) FetchGlobalStats() (models.GlobalMarketStats, error) {
	var payload coinGeckoGlobalResponse
	if err := getJSON(f.client, f.baseURL+"/global", &payload); err != nil {
		return models.GlobalMarketStats{}, err
	}
	return models.GlobalMarketStats{
		TotalMarketCapUSD: payload.Data.TotalMarketCap["usd"],
		TotalVolumeUSD:    payload.Data.TotalVolume["usd"],
		BTCDominance:      payload.Data.MarketCapPercentage["btc"],
		MarketCapChange:   payload.Data.MarketCapChange24h,
		FetchedAt:         time.Now(),
	}, nil
}

// --- alternative.me fear & greed ---

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
	} `json:"data"`
}

type fearGreedFetcher struct {
	client *http.Client
	url    string
}

func NewFearGreedFetcher(url string, timeout time.Duration) SentimentFetcher {
	return &fearGreedFetcher{client: newAPIClient(timeout), url: url}
}

func (f *fearGreedFetcher) FetchSentiment() (models.SentimentIndex, error) {
	var payload fearGreedResponse
	if err := getJSON(f.client, f.url, &payload); err != nil {
		return models.SentimentIndex{}, err
	}
	if len(payload.Data) == 0 {
		return models.SentimentIndex{}, fmt.Errorf("sentiment feed returned no data")
	}
	value, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		return models.SentimentIndex{}, fmt.Errorf("sentiment feed returned non-numeric value %q", payload.Data[0].Value)
	}
	return models.SentimentIndex{
		Value:          value,
		Classification: payload.Data[0].ValueClassification,
		FetchedAt:      time.Now(),
	}, nil
}

// --- CryptoCompare news ---

type cryptoCompareNewsResponse struct {
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		ImageURL    string `json:"imageurl"`
		PublishedOn int64  `json:"published_on"`
		SourceInfo  struct {
			Name string `json:"name"`
		} `json:"source_info"`
	} `json:"Data"`
}

type cryptoCompareNewsFetcher struct {
	client *http.Client
	url    string
}

func NewCryptoCompareNewsFetcher(url string, timeout time.Duration) NewsFetcher {
	return &cryptoCompareNewsFetcher{client: newAPIClient(timeout), url: url}
}

func (f *cryptoCompareNewsFetcher) FetchNews(limit int) ([]models.NewsItem, error) {
	var payload cryptoCompareNewsResponse
	if err := getJSON(f.client, f.url, &payload); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(payload.Data))
	for _, row := range payload.Data {
		if row.Title == "" || row.URL == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       row.Title,
			URL:         row.URL,
			Source:      row.SourceInfo.Name,
			ImageURL:    row.ImageURL,
			PublishedAt: time.Unix(row.PublishedOn, 0).UTC(),
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}
