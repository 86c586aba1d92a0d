// Package core provides the domain types and the currency helpers shared by
// the ledger and the settlement minimizer.
//
// Amounts are float64 currency. Comparisons against zero or between amounts
// go through Epsilon, one minor currency unit, because equal-share splitting
// does not land exactly on zero (100 split three ways leaves a remainder).
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Epsilon is the tolerance used for every zero and equality check.
const Epsilon = 0.01

// IsZero reports whether x is within Epsilon of zero.
func IsZero(x float64) bool {
	return math.Abs(x) < Epsilon
}

// NearlyEqual reports whether a and b differ by less than Epsilon.
func NearlyEqual(a, b float64) bool {
	return IsZero(a - b)
}

// MaxAmount is the largest amount a single transaction may carry. It keeps
// room totals far from float64 overflow.
const MaxAmount = 1e12

// ValidateAmount accepts finite amounts in (0, MaxAmount].
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmount converts user input such as "12.34" or "12,34" to a positive
// amount. See ParseDecimalToCents for the accepted format.
func ParseAmount(s string) (float64, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return 0, err
	}
	amount := float64(cents) / 100.0
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// ParseDecimalToCents converts a decimal string to cents.
//
// Both dot and comma separators are accepted and the third decimal is rounded
// half-up. Negative, zero and malformed values return ErrInvalidAmount.
//
//	ParseDecimalToCents("12,34")  -> 1234
//	ParseDecimalToCents("12.346") -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxWhole = (1<<63 - 1) / 100
	if whole > maxWhole {
		return 0, ErrInvalidAmount
	}

	var frac int64
	for i := 0; i < len(fracPart) && i < 2; i++ {
		d := int64(fracPart[i] - '0')
		if i == 0 {
			frac += d * 10
		} else {
			frac += d
		}
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		frac++
	}

	cents := whole*100 + frac
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// RoundCents rounds x to two decimals for display and export.
func RoundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
