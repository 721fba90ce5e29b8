package processors

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

// BreakevenBand is the absolute amount at or below which a trade counts
// as breakeven rather than a win or a loss.
const BreakevenBand = 1.0

// Aggregate computes DerivedStats over the given entries. The slice is
// expected sorted newest-first (the order entry queries return); the
// caller's slice is never mutated. Every division guards its zero
// denominator, so the function is total over any input including an
// empty one.
func Aggregate(entries []models.LedgerEntry) models.DerivedStats {
	var stats models.DerivedStats

	instrumentCounts := make(map[string]int)
	instrumentOrder := []string{}
	daysSeen := make(map[string]bool)

	bestSet, worstSet := false, false
	winRun, loseRun := 0, 0
	streakDone := false

	for _, e := range entries {
		// Trading days and instrument counts span all entry kinds.
		day := e.CreatedAt.In(time.Local).Format("2006-01-02")
		if !daysSeen[day] {
			daysSeen[day] = true
		}
		if label := strings.TrimSpace(e.Instrument); label != "" {
			if _, seen := instrumentCounts[label]; !seen {
				instrumentOrder = append(instrumentOrder, label)
			}
			instrumentCounts[label]++
		}

		if !e.IsTrade() {
			continue
		}

		stats.TotalTrades++
		amount := e.Amount

		switch {
		case math.Abs(amount) <= BreakevenBand:
			stats.BreakevenTrades++
		case amount > 0:
			stats.WinningTrades++
		default:
			stats.LosingTrades++
		}

		if amount > 0 {
			stats.TotalProfit += amount
		} else if amount < 0 {
			stats.TotalLoss += -amount
		}

		if !bestSet || amount > stats.BestTrade {
			stats.BestTrade = amount
			bestSet = true
		}
		if !worstSet || amount < stats.WorstTrade {
			stats.WorstTrade = amount
			worstSet = true
		}

		// Current streak: walk stops at the first zero or sign flip and
		// never resumes past the break.
		if !streakDone {
			switch {
			case amount == 0:
				streakDone = true
			case stats.CurrentStreak == 0:
				if amount > 0 {
					stats.CurrentStreak = 1
				} else {
					stats.CurrentStreak = -1
				}
			case stats.CurrentStreak > 0 && amount > 0:
				stats.CurrentStreak++
			case stats.CurrentStreak < 0 && amount < 0:
				stats.CurrentStreak--
			default:
				streakDone = true
			}
		}

		// Longest runs: a zero amount resets both counters, a sign
		// mismatch resets the opposing one.
		switch {
		case amount == 0:
			winRun, loseRun = 0, 0
		case amount > 0:
			winRun++
			loseRun = 0
		default:
			loseRun++
			winRun = 0
		}
		if winRun > stats.BestWinStreak {
			stats.BestWinStreak = winRun
		}
		if loseRun > stats.WorstLoseStreak {
			stats.WorstLoseStreak = loseRun
		}
	}

	stats.NetPnL = stats.TotalProfit - stats.TotalLoss

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	if stats.WinningTrades > 0 {
		stats.AvgProfit = stats.TotalProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = stats.TotalLoss / float64(stats.LosingTrades)
	}

	stats.ProfitFactor = profitFactor(stats.TotalProfit, stats.TotalLoss)
	stats.ProfitFactorStr = formatProfitFactor(stats.ProfitFactor)

	stats.MostTradedInstrument = mostTraded(instrumentCounts, instrumentOrder)
	stats.TradingDays = len(daysSeen)
	if stats.TradingDays > 0 {
		stats.AvgEntriesPerDay = float64(len(entries)) / float64(stats.TradingDays)
	}

	return stats
}

// profitFactor is +Inf when there are gains but no losses, and 0 when
// there are neither.
func profitFactor(totalProfit, totalLoss float64) float64 {
	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return strconv.FormatFloat(pf, 'f', 2, 64)
}

// mostTraded returns the label with the strictly highest count; ties are
// broken by first-seen order, never by label.
func mostTraded(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, label := range order {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}

// Balance sums the signed cash flow over all entry kinds: trades
// contribute their signed P&L, income contributes a positive magnitude,
// expenses and withdrawals a negative one.
func Balance(entries []models.LedgerEntry) float64 {
	var balance float64
	for _, e := range entries {
		balance += models.NormalizedAmount(e.Kind, e.Amount)
	}
	return balance
}
