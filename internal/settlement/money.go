package settlement

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every money value.
const Scale = 2

var (
	ErrInvalidMoney = errors.New("invalid_money")
	ErrTooPrecise   = errors.New("money_too_precise")
)

// ParseAmount parses a decimal string and rejects values with more than
// Scale fractional digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidMoney
	}
	if err := CheckScale(value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

func CheckScale(value decimal.Decimal) error {
	if !value.Equal(value.Truncate(Scale)) {
		return ErrTooPrecise
	}
	return nil
}

// Normalize rounds a stored or aggregated value back to Scale digits. Some
// drivers hand SUM results back as binary floats.
func Normalize(value decimal.Decimal) decimal.Decimal {
	return value.Round(Scale)
}

// Format renders a money value with exactly Scale fractional digits.
func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// Sum adds values and normalises the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Normalize(total)
}
