package domain

import (
	"strconv"
	"strings"
)

// ParseAmount parses a claim amount from a currency-formatted string.
// Dollar signs, commas, and surrounding whitespace are stripped, so
// "$42,000" parses to 42000. An unparseable value such as "N/A" returns
// ErrInvalidAmount; callers are expected to omit the amount rather than
// fail the surrounding operation.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, NewValidationError("claim_amount", s, ErrInvalidAmount)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, NewValidationError("claim_amount", s, ErrInvalidAmount)
	}
	return v, nil
}

// AmountOrZero parses a claim amount, returning 0 when absent or malformed.
func AmountOrZero(s string) float64 {
	v, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return v
}
