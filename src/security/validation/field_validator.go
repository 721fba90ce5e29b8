package validation

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/username/coinledger/backend/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxInstrumentLength = 50
	MaxNoteLength       = 1024
	MaxUsernameLength   = 50
	MaxMessageLength    = 2000
	MaxGoalNameLength   = 100
)

// --- String validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// --- Numeric validators ---

// ValidateFiniteAmount rejects NaN and infinities. The ledger stores
// signed amounts, so negatives are fine here; sign normalization by
// entry kind happens at write time.
func ValidateFiniteAmount(v float64, fieldName string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidatePositiveAmount additionally requires a value greater than zero.
func ValidatePositiveAmount(v float64, fieldName string) error {
	if err := ValidateFiniteAmount(v, fieldName); err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be greater than zero", ErrValidationFailed, fieldName)
	}
	return nil
}

// --- Domain enums ---

// ValidateEntryKind checks the kind against the known set.
func ValidateEntryKind(kind models.EntryKind) error {
	if !models.ValidKinds[kind] {
		return fmt.Errorf("%w: unknown entry kind '%s'", ErrValidationFailed, kind)
	}
	return nil
}

// ValidateTradeSide checks the position side. Empty is allowed for
// non-trade kinds.
func ValidateTradeSide(side models.TradeSide) error {
	if side == "" || side == models.SideLong || side == models.SideShort {
		return nil
	}
	return fmt.Errorf("%w: unknown trade side '%s'", ErrValidationFailed, side)
}

// --- Date validator ---

// ValidateDayString checks if a string is a valid calendar date in
// "YYYY-MM-DD" format, as used by the day filter.
func ValidateDayString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD): %v", ErrValidationFailed, fieldName, s, err)
	}
	if t.Format("2006-01-02") != trimmed {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}
