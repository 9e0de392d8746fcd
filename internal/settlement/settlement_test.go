package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name  string
		total string
		paid  string
		want  Status
	}{
		{"nothing paid", "1000.00", "0", StatusIssued},
		{"partially paid", "1000.00", "400.00", StatusPartial},
		{"exactly paid", "1000.00", "1000.00", StatusPaid},
		{"overpaid", "1000.00", "1200.00", StatusPaid},
		{"one cent short", "1000.00", "999.99", StatusPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(d(tc.total), d(tc.paid)))
		})
	}
}

func TestResolveVoidShortCircuits(t *testing.T) {
	assert.Equal(t, StatusVoid, Resolve(true, d("10.00"), d("10.00")))
	assert.Equal(t, StatusPaid, Resolve(false, d("10.00"), d("10.00")))
}

func TestPendingIsExact(t *testing.T) {
	total := d("1000.10")
	assert.True(t, Pending(total, decimal.Zero).Equal(total))
	assert.True(t, Pending(total, total).IsZero())
	assert.Equal(t, "0.30", Format(Pending(d("0.60"), d("0.30"))))
	assert.Equal(t, "-5.00", Format(Pending(d("10.00"), d("15.00"))))
}

func TestValidatePaymentAmount(t *testing.T) {
	pending := d("400.00")

	err := ValidatePaymentAmount(decimal.Zero, pending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.Equal(t, "Payment amount must be greater than zero, got 0.00", err.Error())

	err = ValidatePaymentAmount(d("-1"), pending)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	err = ValidatePaymentAmount(d("400.01"), pending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExceedsPending))
	assert.Equal(t, "Payment amount (400.01) exceeds pending amount (400.00)", err.Error())

	assert.NoError(t, ValidatePaymentAmount(pending, pending))
	assert.NoError(t, ValidatePaymentAmount(d("0.01"), pending))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, "12.50", Format(v))

	_, err = ParseAmount("1.001")
	assert.ErrorIs(t, err, ErrTooPrecise)

	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

func TestSumNormalizesFloatNoise(t *testing.T) {
	noisy := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))
	assert.Equal(t, "0.30", Format(Normalize(noisy)))
	assert.Equal(t, "6000.00", Format(Sum(d("5000"), d("1000.00"))))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("partial")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, s)
	assert.False(t, StatusPaid.Amendable())
	assert.True(t, StatusVoid.IsTerminal())

	_, err = ParseStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
