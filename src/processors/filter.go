package processors

import (
	"sort"
	"strings"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

// Outcome buckets entries by the sign of their amount.
type Outcome string

const (
	OutcomeAny       Outcome = ""
	OutcomeProfit    Outcome = "profit"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// SortDirection orders entries by CreatedAt.
type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// EntryFilter holds the optional predicates applied to a raw entry list.
// All set predicates are combined with logical AND. The ownership scope
// (mine vs. a specific other user) is resolved at query time by the
// handlers and is not part of this in-memory pipeline.
type EntryFilter struct {
	Search  string           // case-insensitive substring over instrument OR note
	Kind    models.EntryKind // exact kind match
	Outcome Outcome
	Side    models.TradeSide // trade-only; non-trades are excluded when set
	Day     string           // exact calendar day, YYYY-MM-DD in the viewer's zone
}

// Apply filters and sorts entries. The caller's slice is left untouched;
// the result is a fresh slice. Sorting is stable so ties keep their
// original relative order.
func Apply(entries []models.LedgerEntry, filter EntryFilter, dir SortDirection) []models.LedgerEntry {
	result := make([]models.LedgerEntry, 0, len(entries))
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	for _, e := range entries {
		if !matches(e, filter, search) {
			continue
		}
		result = append(result, e)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if dir == SortAsc {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

func matches(e models.LedgerEntry, filter EntryFilter, search string) bool {
	if search != "" {
		instrument := strings.ToLower(e.Instrument)
		note := strings.ToLower(e.Note)
		if !strings.Contains(instrument, search) && !strings.Contains(note, search) {
			return false
		}
	}

	if filter.Kind != "" && e.Kind != filter.Kind {
		return false
	}

	switch filter.Outcome {
	case OutcomeProfit:
		if e.Amount <= 0 {
			return false
		}
	case OutcomeLoss:
		if e.Amount >= 0 {
			return false
		}
	case OutcomeBreakeven:
		if e.Amount > BreakevenBand || e.Amount < -BreakevenBand {
			return false
		}
	}

	if filter.Side != "" {
		if !e.IsTrade() || e.Side != filter.Side {
			return false
		}
	}

	if filter.Day != "" {
		if e.CreatedAt.In(time.Local).Format("2006-01-02") != filter.Day {
			return false
		}
	}

	return true
}
