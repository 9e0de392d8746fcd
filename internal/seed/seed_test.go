package seed_test

import (
	"context"
	"testing"

	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/seed"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunPopulatesEveryStatus(t *testing.T) {
	l := testutil.NewLedger(t)
	ctx := context.Background()
	params := seed.Params{
		Log:      zap.NewNop(),
		Schools:  l.Schools,
		Students: l.Students,
		Invoices: l.Invoices,
		Payments: l.Payments,
	}

	summary, err := seed.Run(ctx, params, l.Clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Schools)
	assert.Equal(t, 7, summary.Students)
	assert.Equal(t, 7, summary.Invoices)
	assert.Equal(t, 5, summary.Payments)
	assert.Equal(t, 1, summary.Voided)

	invoices, _, err := l.Invoices.List(ctx, invoicedomain.ListRequest{})
	require.NoError(t, err)
	seen := map[settlement.Status]int{}
	for _, inv := range invoices {
		seen[inv.Status]++
	}
	assert.Equal(t, 2, seen[settlement.StatusPaid])
	assert.Equal(t, 2, seen[settlement.StatusPartial])
	assert.Equal(t, 2, seen[settlement.StatusIssued])
	assert.Equal(t, 1, seen[settlement.StatusVoid])

	schools, _, err := l.Schools.List(ctx, schooldomain.ListRequest{})
	require.NoError(t, err)
	currencies := map[string]string{}
	for _, s := range schools {
		currencies[s.Country] = s.Currency
	}
	assert.Equal(t, map[string]string{"MX": "MXN", "CO": "COP", "EC": "USD"}, currencies)
}

func TestRunIsRerunnable(t *testing.T) {
	l := testutil.NewLedger(t)
	params := seed.Params{
		Log:      zap.NewNop(),
		Schools:  l.Schools,
		Students: l.Students,
		Invoices: l.Invoices,
		Payments: l.Payments,
	}

	_, err := seed.Run(context.Background(), params, l.Clock.Now())
	require.NoError(t, err)

	summary, err := seed.Run(context.Background(), params, l.Clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Schools)
	assert.Equal(t, 3, summary.Skipped)
}
