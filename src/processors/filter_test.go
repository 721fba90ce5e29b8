package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/coinledger/backend/src/models"
)

func sampleEntries() []models.LedgerEntry {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	return []models.LedgerEntry{
		{ID: 1, Instrument: "BTC", Note: "scalp on breakout", Kind: models.KindTrade, Side: models.SideLong, Amount: 50, CreatedAt: base},
		{ID: 2, Instrument: "ETH", Note: "bad entry", Kind: models.KindTrade, Side: models.SideShort, Amount: -20, CreatedAt: base.Add(-time.Hour)},
		{ID: 3, Instrument: "USD", Note: "salary", Kind: models.KindIncome, Amount: 1000, CreatedAt: base.Add(-2 * time.Hour)},
		{ID: 4, Instrument: "BTC", Note: "flat close", Kind: models.KindTrade, Side: models.SideLong, Amount: 0.5, CreatedAt: base.Add(-25 * time.Hour)},
		{ID: 5, Instrument: "USD", Note: "groceries", Kind: models.KindExpense, Amount: -75, CreatedAt: base.Add(-26 * time.Hour)},
	}
}

func ids(entries []models.LedgerEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestApplyNoFilterKeepsAll(t *testing.T) {
	entries := sampleEntries()
	result := Apply(entries, EntryFilter{}, SortDesc)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(result))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	entries := sampleEntries()
	_ = Apply(entries, EntryFilter{}, SortAsc)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(entries))
}

func TestApplySearchMatchesInstrumentOrNote(t *testing.T) {
	entries := sampleEntries()

	result := Apply(entries, EntryFilter{Search: "btc"}, SortDesc)
	assert.Equal(t, []int64{1, 4}, ids(result))

	result = Apply(entries, EntryFilter{Search: "SALARY"}, SortDesc)
	assert.Equal(t, []int64{3}, ids(result))
}

func TestApplyKindAndOutcome(t *testing.T) {
	entries := sampleEntries()

	result := Apply(entries, EntryFilter{Kind: models.KindTrade, Outcome: OutcomeLoss}, SortDesc)
	assert.Equal(t, []int64{2}, ids(result))

	result = Apply(entries, EntryFilter{Outcome: OutcomeBreakeven}, SortDesc)
	assert.Equal(t, []int64{4}, ids(result))

	result = Apply(entries, EntryFilter{Outcome: OutcomeProfit}, SortDesc)
	assert.Equal(t, []int64{1, 3, 4}, ids(result))
}

func TestApplySideExcludesNonTrades(t *testing.T) {
	entries := sampleEntries()
	result := Apply(entries, EntryFilter{Side: models.SideLong}, SortDesc)
	assert.Equal(t, []int64{1, 4}, ids(result))
}

func TestApplyDayFilter(t *testing.T) {
	entries := sampleEntries()
	day := entries[0].CreatedAt.In(time.Local).Format("2006-01-02")

	result := Apply(entries, EntryFilter{Day: day}, SortDesc)
	require.NotEmpty(t, result)
	for _, e := range result {
		assert.Equal(t, day, e.CreatedAt.In(time.Local).Format("2006-01-02"))
	}
}

func TestApplySortAscending(t *testing.T) {
	entries := sampleEntries()
	result := Apply(entries, EntryFilter{}, SortAsc)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(result))
}

func TestApplyStableSortForTies(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	entries := []models.LedgerEntry{
		{ID: 1, Instrument: "BTC", Kind: models.KindTrade, Amount: 1, CreatedAt: base},
		{ID: 2, Instrument: "ETH", Kind: models.KindTrade, Amount: 2, CreatedAt: base},
		{ID: 3, Instrument: "SOL", Kind: models.KindTrade, Amount: 3, CreatedAt: base},
	}

	result := Apply(entries, EntryFilter{}, SortDesc)
	assert.Equal(t, []int64{1, 2, 3}, ids(result))

	result = Apply(entries, EntryFilter{}, SortAsc)
	assert.Equal(t, []int64{1, 2, 3}, ids(result))
}

func TestApplyCombinedFiltersAreANDed(t *testing.T) {
	entries := sampleEntries()
	result := Apply(entries, EntryFilter{
		Search:  "btc",
		Kind:    models.KindTrade,
		Outcome: OutcomeProfit,
		Side:    models.SideLong,
	}, SortDesc)
	assert.Equal(t, []int64{1, 4}, ids(result))
}
