package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount keeps values inside NUMERIC(14, 2).
var maxAmount = decimal.New(1, 12)

// ParseAmount converts form input to a non-negative amount with two decimal
// places, rounding half-up on the third.
//
// Accepts a dot or a comma as decimal separator and an optional leading "$":
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("12,5")   -> 12.50
//	ParseAmount("$4.5")   -> 4.50
//
// A comma takes at most two decimals: "1,500" reads as a thousands separator
// and is rejected, as are signs, exponents and empty input.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".")+strings.Count(s, ",") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		if len(s)-i-1 > 2 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = s[:i] + "." + s[i+1:]
	}

	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
