package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/coinledger/backend/src/models"
)

func TestValidateStringNotEmpty(t *testing.T) {
	assert.NoError(t, ValidateStringNotEmpty("BTC", "Instrument"))
	assert.ErrorIs(t, ValidateStringNotEmpty("", "Instrument"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateStringNotEmpty("   \t", "Instrument"), ErrValidationFailed)
}

func TestValidateStringMaxLength(t *testing.T) {
	assert.NoError(t, ValidateStringMaxLength(strings.Repeat("a", MaxInstrumentLength), MaxInstrumentLength, "Instrument"))
	assert.ErrorIs(t, ValidateStringMaxLength(strings.Repeat("a", MaxInstrumentLength+1), MaxInstrumentLength, "Instrument"), ErrValidationFailed)

	// Length is counted in runes, not bytes.
	multibyte := strings.Repeat("é", MaxInstrumentLength)
	assert.NoError(t, ValidateStringMaxLength(multibyte, MaxInstrumentLength, "Instrument"))
}

func TestValidateFiniteAmount(t *testing.T) {
	assert.NoError(t, ValidateFiniteAmount(100.50, "Amount"))
	assert.NoError(t, ValidateFiniteAmount(-250, "Amount"))
	assert.NoError(t, ValidateFiniteAmount(0, "Amount"))
	assert.ErrorIs(t, ValidateFiniteAmount(math.NaN(), "Amount"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateFiniteAmount(math.Inf(1), "Amount"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateFiniteAmount(math.Inf(-1), "Amount"), ErrValidationFailed)
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(0.01, "Target amount"))
	assert.ErrorIs(t, ValidatePositiveAmount(0, "Target amount"), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePositiveAmount(-5, "Target amount"), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePositiveAmount(math.NaN(), "Target amount"), ErrValidationFailed)
}

func TestValidateEntryKind(t *testing.T) {
	kinds := []models.EntryKind{
		models.KindTrade,
		models.KindIncome,
		models.KindExpense,
		models.KindCardWithdrawal,
		models.KindWalletWithdrawal,
	}
	for _, kind := range kinds {
		assert.NoError(t, ValidateEntryKind(kind))
	}
	assert.ErrorIs(t, ValidateEntryKind(models.EntryKind("dividend")), ErrValidationFailed)
	assert.ErrorIs(t, ValidateEntryKind(models.EntryKind("")), ErrValidationFailed)
}

func TestValidateTradeSide(t *testing.T) {
	assert.NoError(t, ValidateTradeSide(models.SideLong))
	assert.NoError(t, ValidateTradeSide(models.SideShort))
	assert.NoError(t, ValidateTradeSide(models.TradeSide("")))
	assert.ErrorIs(t, ValidateTradeSide(models.TradeSide("SIDEWAYS")), ErrValidationFailed)
}

func TestValidateDayString(t *testing.T) {
	day, err := ValidateDayString("2026-02-14", "Day")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), day)

	_, err = ValidateDayString("", "Day")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateDayString("14/02/2026", "Day")
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Parseable but not a real calendar date.
	_, err = ValidateDayString("2026-02-31", "Day")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSanitizeTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("<script>alert(1)</script>hello"))
	assert.Equal(t, "bold move", SanitizeText("<b>bold</b> move"))
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "clean text", StripUnprintable("clean\x00 text\x07"))
}
