package ingestion

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitFactor scales major currency units in a sheet to the stored minor units.
const MinorUnitFactor = 100

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMinorUnits converts a major-unit amount to minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Mul(decimal.NewFromInt(MinorUnitFactor)).Round(0)
	if scaled.Abs().GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("amount %s is too large", amount.String())
	}
	return scaled.IntPart(), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch value := v.(type) {
	case float64:
		return decimal.NewFromFloat(value), nil
	case string:
		d, err := decimal.NewFromString(cleanNumber(value))
		if err != nil {
			return decimal.Zero, errNotNumber
		}
		return d, nil
	}
	return decimal.Zero, errNotNumber
}

// Money reads an optional non-negative amount in major units and returns it in minor units.
func (r Record) Money(field, label string) (*int64, error) {
	v, ok := r.Lookup(field)
	if !ok {
		return nil, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", label, scalarText(v))
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%s must not be negative", label)
	}
	minor, err := ToMinorUnits(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &minor, nil
}

// MoneyOrZero is Money with a zero default for NOT NULL amount columns.
func (r Record) MoneyOrZero(field, label string) (int64, error) {
	amount, err := r.Money(field, label)
	if err != nil || amount == nil {
		return 0, err
	}
	return *amount, nil
}

// Currency reads an ISO-style currency code, upper-cased.
func (r Record) Currency(field, fallback string) string {
	if code, ok := r.Text(field); ok {
		return strings.ToUpper(code)
	}
	return fallback
}
