package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds a single amount (ten billion in major units).
const MaxAmountCents int64 = 1_000_000_000_000

var (
	maxAmount = decimal.NewFromInt(MaxAmountCents)

	groupedThousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+\.\d*$`)
)

// Dollars returns the amount in major units with two decimal places.
func (m Money) Dollars() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Dollars().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return NewValidationError("amount", "amount cannot be negative")
	}
	if m.Cents > MaxAmountCents {
		return NewValidationError("amount", "amount is too large")
	}
	return nil
}

// ParseAmount parses a non-negative decimal amount into cents.
func ParseAmount(s string) (Money, error) {
	cents, err := ParseSignedCents(s)
	if err != nil {
		return Money{}, err
	}
	m := Money{Cents: cents}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// ParseSignedCents parses a decimal amount that may carry a sign.
// "." is the only decimal separator. "," is accepted as a thousands
// separator when the amount also has a decimal point and the integer
// part is grouped in threes, so "1,234.00" parses and "1,234" does not.
// Rounds half away from zero at the third decimal.
func ParseSignedCents(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, NewValidationError("amount", "amount is required")
	}
	invalid := NewValidationError("amount", fmt.Sprintf("invalid amount %q", raw))

	normalized := raw
	if strings.Contains(normalized, ",") {
		if !groupedThousands.MatchString(normalized) {
			return 0, invalid
		}
		normalized = strings.ReplaceAll(normalized, ",", "")
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, invalid
	}

	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxAmount) {
		return 0, NewValidationError("amount", "amount is too large")
	}
	return cents.IntPart(), nil
}
