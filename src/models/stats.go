package models

// DerivedStats holds the aggregated trading statistics computed over a
// (possibly filtered) set of ledger entries. It is never persisted.
//
// ProfitFactor follows the usual trading convention: +Inf when there are
// gains but no losses, 0 when there are neither. JSON cannot represent
// Inf, so ProfitFactorStr mirrors the value as a display string.
type DerivedStats struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	BreakevenTrades int     `json:"breakeven_trades"`
	TotalProfit     float64 `json:"total_profit"`
	TotalLoss       float64 `json:"total_loss"`
	NetPnL          float64 `json:"net_pnl"`
	WinRate         float64 `json:"win_rate"`

	CurrentStreak   int `json:"current_streak"`
	BestWinStreak   int `json:"best_win_streak"`
	WorstLoseStreak int `json:"worst_lose_streak"`

	BestTrade  float64 `json:"best_trade"`
	WorstTrade float64 `json:"worst_trade"`
	AvgProfit  float64 `json:"avg_profit"`
	AvgLoss    float64 `json:"avg_loss"`

	ProfitFactor    float64 `json:"-"`
	ProfitFactorStr string  `json:"profit_factor"`

	MostTradedInstrument string  `json:"most_traded_instrument,omitempty"`
	TradingDays          int     `json:"trading_days"`
	AvgEntriesPerDay     float64 `json:"avg_entries_per_day"`
}
