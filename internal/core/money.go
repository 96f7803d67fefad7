// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents; shopspring/decimal does the text
// conversion so that sums never go through floating point.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds a single entry (100 billion units). Sums stay
// inside int64 for up to 922,337 maximum-size entries.
const MaxAmountCents int64 = 10_000_000_000_000

// Exponents outside this range are rejected before any rescaling.
const (
	minAmountExp = -32
	maxAmountExp = 18
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	if s == "." || s[0] == '+' || s[0] == '-' {
		return 0, ErrInvalidAmount
	}
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	cents := d.Round(2).Shift(2)
	if cents.Sign() <= 0 || cents.GreaterThan(decimal.NewFromInt(MaxAmountCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney parses a positive amount.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromDecimal rounds d half-up to cents. Negative values are kept,
// aggregates such as net profit can go below zero.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount without trailing zeros ("5000", "12.5", "0.01").
func (m Money) String() string {
	return m.Decimal().String()
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// MarshalJSON encodes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	d, err := parseDecimal(string(b))
	if err != nil {
		return err
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// parseDecimal accepts plain and exponent notation ("12.5", "1e3").
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp < minAmountExp || exp > maxAmountExp {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}
