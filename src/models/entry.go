package models

import (
	"math"
	"time"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	KindTrade            EntryKind = "TRADE"
	KindIncome           EntryKind = "INCOME"
	KindExpense          EntryKind = "EXPENSE"
	KindCardWithdrawal   EntryKind = "CARD_WITHDRAWAL"
	KindWalletWithdrawal EntryKind = "WALLET_WITHDRAWAL"
)

// TradeSide is the position direction of a trade. Empty for non-trade kinds.
type TradeSide string

const (
	SideLong  TradeSide = "LONG"
	SideShort TradeSide = "SHORT"
)

// ValidKinds is used by handlers to reject unknown kinds on write.
var ValidKinds = map[EntryKind]bool{
	KindTrade:            true,
	KindIncome:           true,
	KindExpense:          true,
	KindCardWithdrawal:   true,
	KindWalletWithdrawal: true,
}

// LedgerEntry is one user-recorded trade or cash operation.
// Amount carries the signed realized P&L for trades and the signed
// cash flow for every other kind; the sign is normalized by kind at
// write time (see NormalizedAmount).
type LedgerEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Instrument    string    `json:"instrument"`
	EntryPrice    float64   `json:"entry_price,omitempty"`
	ExitPrice     float64   `json:"exit_price,omitempty"`
	Quantity      float64   `json:"quantity"`
	Amount        float64   `json:"amount"`
	Kind          EntryKind `json:"kind"`
	Side          TradeSide `json:"side,omitempty"`
	Note          string    `json:"note,omitempty"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	Pinned        bool      `json:"pinned"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTrade reports whether the entry participates in win/loss statistics.
func (e *LedgerEntry) IsTrade() bool {
	return e.Kind == KindTrade
}

// NormalizedAmount returns the amount with the sign the kind mandates:
// expenses and withdrawals store a negative magnitude, income stores a
// positive magnitude, trades keep their signed P&L unchanged.
func NormalizedAmount(kind EntryKind, amount float64) float64 {
	switch kind {
	case KindIncome:
		return math.Abs(amount)
	case KindExpense, KindCardWithdrawal, KindWalletWithdrawal:
		return -math.Abs(amount)
	default:
		return amount
	}
}
