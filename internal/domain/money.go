package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision every stored or displayed amount is rounded to.
const CurrencyPlaces int32 = 2

// PercentPlaces matches the NUMERIC(5,2) percentage columns.
const PercentPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundCurrency rounds half away from zero to CurrencyPlaces.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// RoundPercentage rounds half away from zero to PercentPlaces.
func RoundPercentage(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentPlaces)
}

// PercentOf returns amount * pct / 100 rounded to currency precision.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundCurrency(amount.Mul(pct).Div(hundred))
}

// ParseAmount parses a decimal string and requires it to be strictly positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", s, ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", s, ErrInvalidAmount)
	}
	return d, nil
}

// FormatAmount renders an amount with exactly CurrencyPlaces decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}
