package processors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/coinledger/backend/src/models"
)

// tradesNewestFirst builds Trade entries from amounts, newest first, one
// minute apart so CreatedAt ordering matches slice order.
func tradesNewestFirst(amounts ...float64) []models.LedgerEntry {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	entries := make([]models.LedgerEntry, len(amounts))
	for i, a := range amounts {
		entries[i] = models.LedgerEntry{
			ID:         int64(i + 1),
			Instrument: "BTC",
			Kind:       models.KindTrade,
			Amount:     a,
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)

	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0.0, stats.ProfitFactor)
	assert.Equal(t, "0.00", stats.ProfitFactorStr)
	assert.Empty(t, stats.MostTradedInstrument)
	assert.Equal(t, 0, stats.TradingDays)
	assert.Equal(t, 0.0, stats.AvgEntriesPerDay)
}

func TestAggregateScenario(t *testing.T) {
	// Newest-first: +50, -20, -10, +5.
	stats := Aggregate(tradesNewestFirst(50, -20, -10, 5))

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.Equal(t, 0, stats.BreakevenTrades)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 55.0, stats.TotalProfit, 1e-9)
	assert.InDelta(t, 30.0, stats.TotalLoss, 1e-9)
	assert.InDelta(t, 25.0, stats.NetPnL, 1e-9)
	assert.InDelta(t, 1.8333, stats.ProfitFactor, 1e-3)

	// The newest entry is +50, so the current streak is +1 before the
	// following -20 breaks it.
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.BestWinStreak)
	assert.Equal(t, 2, stats.WorstLoseStreak)

	assert.InDelta(t, 50.0, stats.BestTrade, 1e-9)
	assert.InDelta(t, -20.0, stats.WorstTrade, 1e-9)
}

func TestAggregateCountsPartition(t *testing.T) {
	entries := tradesNewestFirst(12, -0.5, 0.9, -7, 3, 0)
	stats := Aggregate(entries)

	assert.Equal(t, len(entries), stats.TotalTrades)
	assert.Equal(t, stats.TotalTrades,
		stats.WinningTrades+stats.LosingTrades+stats.BreakevenTrades)
	assert.InDelta(t, stats.NetPnL, stats.TotalProfit-stats.TotalLoss, 1e-9)
}

func TestAggregateCurrentStreakStopsAtZero(t *testing.T) {
	// Zero on the newest entry means no streak at all.
	stats := Aggregate(tradesNewestFirst(0, 10, 20))
	assert.Equal(t, 0, stats.CurrentStreak)

	// A zero mid-walk stops the streak without resuming past it.
	stats = Aggregate(tradesNewestFirst(10, 20, 0, 30, 40))
	assert.Equal(t, 2, stats.CurrentStreak)
}

func TestAggregateCurrentStreakNegative(t *testing.T) {
	stats := Aggregate(tradesNewestFirst(-5, -8, -2, 40))
	assert.Equal(t, -3, stats.CurrentStreak)
}

func TestAggregateZeroResetsRuns(t *testing.T) {
	// Runs: +,+,0,+,+,+ => best win streak is 3, not 5.
	stats := Aggregate(tradesNewestFirst(10, 10, 10, 0, 10, 10))
	assert.Equal(t, 3, stats.BestWinStreak)
	assert.Equal(t, 0, stats.WorstLoseStreak)
}

func TestProfitFactorConventions(t *testing.T) {
	stats := Aggregate(tradesNewestFirst(10, 20))
	assert.True(t, math.IsInf(stats.ProfitFactor, 1))
	assert.Equal(t, "inf", stats.ProfitFactorStr)

	stats = Aggregate(nil)
	assert.Equal(t, 0.0, stats.ProfitFactor)

	// All-breakeven zeros: no profit and no loss.
	stats = Aggregate(tradesNewestFirst(0, 0))
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestMostTradedInstrumentFirstSeenTieBreak(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	entries := []models.LedgerEntry{
		{Instrument: "ETH", Kind: models.KindTrade, Amount: 5, CreatedAt: base},
		{Instrument: "BTC", Kind: models.KindTrade, Amount: -3, CreatedAt: base.Add(-time.Minute)},
		{Instrument: "  ETH ", Kind: models.KindTrade, Amount: 2, CreatedAt: base.Add(-2 * time.Minute)},
		{Instrument: "BTC", Kind: models.KindTrade, Amount: 8, CreatedAt: base.Add(-3 * time.Minute)},
		{Instrument: "", Kind: models.KindTrade, Amount: 1, CreatedAt: base.Add(-4 * time.Minute)},
	}

	stats := Aggregate(entries)
	// ETH and BTC both occur twice; ETH was seen first. Labels are
	// trimmed before counting and empty labels are excluded.
	assert.Equal(t, "ETH", stats.MostTradedInstrument)
}

func TestTradingDaysAndAvgEntries(t *testing.T) {
	day1 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 13, 22, 0, 0, 0, time.Local)
	entries := []models.LedgerEntry{
		{Instrument: "BTC", Kind: models.KindTrade, Amount: 5, CreatedAt: day1},
		{Instrument: "BTC", Kind: models.KindTrade, Amount: -2, CreatedAt: day1.Add(-time.Hour)},
		{Instrument: "SOL", Kind: models.KindIncome, Amount: 100, CreatedAt: day2},
	}

	stats := Aggregate(entries)
	assert.Equal(t, 2, stats.TradingDays)
	assert.InDelta(t, 1.5, stats.AvgEntriesPerDay, 1e-9)
}

func TestAggregateIgnoresNonTradeKinds(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	entries := []models.LedgerEntry{
		{Instrument: "BTC", Kind: models.KindTrade, Amount: 10, CreatedAt: base},
		{Instrument: "USD", Kind: models.KindIncome, Amount: 500, CreatedAt: base.Add(-time.Minute)},
		{Instrument: "USD", Kind: models.KindExpense, Amount: -200, CreatedAt: base.Add(-2 * time.Minute)},
	}

	stats := Aggregate(entries)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.InDelta(t, 10.0, stats.TotalProfit, 1e-9)
	assert.InDelta(t, 0.0, stats.TotalLoss, 1e-9)
	assert.InDelta(t, 10.0, stats.BestTrade, 1e-9)
}

func TestBalance(t *testing.T) {
	entries := []models.LedgerEntry{
		{Kind: models.KindTrade, Amount: 50},
		{Kind: models.KindTrade, Amount: -20},
		{Kind: models.KindIncome, Amount: 100},
		{Kind: models.KindExpense, Amount: -30},
		{Kind: models.KindCardWithdrawal, Amount: -10},
	}
	assert.InDelta(t, 90.0, Balance(entries), 1e-9)
}

func TestNormalizedAmountByKind(t *testing.T) {
	assert.InDelta(t, -12.34, models.NormalizedAmount(models.KindExpense, 12.34), 1e-9)
	assert.InDelta(t, 5.0, models.NormalizedAmount(models.KindIncome, -5), 1e-9)
	assert.InDelta(t, -7.0, models.NormalizedAmount(models.KindWalletWithdrawal, 7), 1e-9)
	assert.InDelta(t, -42.0, models.NormalizedAmount(models.KindTrade, -42), 1e-9)
}
