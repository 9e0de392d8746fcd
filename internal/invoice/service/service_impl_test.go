package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"github.com/smallbiznis/schoolbilling/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

func setupStudent(t *testing.T, l *testutil.Ledger, currency string) *studentdomain.Student {
	t.Helper()
	ctx := context.Background()
	school, err := l.Schools.Create(ctx, schooldomain.CreateRequest{Name: "Colegio Central", Country: "MX", Currency: currency})
	require.NoError(t, err)
	student, err := l.Students.Create(ctx, studentdomain.CreateRequest{
		SchoolID:  school.ID,
		FirstName: "Ana",
		LastName:  "Lopez",
		Email:     "ana@example.com",
	})
	require.NoError(t, err)
	return student
}

func createInvoice(t *testing.T, l *testutil.Ledger, studentID snowflake.ID, amount string) *invoicedomain.Invoice {
	t.Helper()
	inv, err := l.Invoices.Create(context.Background(), invoicedomain.CreateRequest{
		StudentID:   studentID,
		AmountTotal: money(amount),
		Currency:    "mxn",
		DueDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return inv
}

func TestCreateInvoice(t *testing.T) {
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")

	inv := createInvoice(t, l, student.ID, "1000.00")
	assert.Equal(t, settlement.StatusIssued, inv.Status)
	assert.Equal(t, "MXN", inv.Currency)
	assert.True(t, inv.AmountTotal.Equal(money("1000")))
	assert.Equal(t, l.Clock.Now(), inv.IssuedAt)

	logs, _, err := l.Audit.List(context.Background(), auditdomain.ListRequest{TargetType: "invoice", TargetID: inv.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "invoice.created", logs[0].Action)
	assert.Equal(t, "1000.00", logs[0].Metadata["amount_total"])
}

func TestCreateInvoiceCurrencyMismatch(t *testing.T) {
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")

	_, err := l.Invoices.Create(context.Background(), invoicedomain.CreateRequest{
		StudentID:   student.ID,
		AmountTotal: money("100"),
		Currency:    "USD",
		DueDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "Invoice currency (USD) must match school currency (MXN)", err.Error())
}

func TestCreateInvoiceRejects(t *testing.T) {
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  invoicedomain.CreateRequest
		want error
	}{
		{"missing student", invoicedomain.CreateRequest{StudentID: 42, AmountTotal: money("10"), Currency: "MXN", DueDate: due}, apperror.ErrNotFound},
		{"zero amount", invoicedomain.CreateRequest{StudentID: student.ID, AmountTotal: money("0"), Currency: "MXN", DueDate: due}, apperror.ErrValidation},
		{"three decimals", invoicedomain.CreateRequest{StudentID: student.ID, AmountTotal: money("10.005"), Currency: "MXN", DueDate: due}, apperror.ErrValidation},
		{"no due date", invoicedomain.CreateRequest{StudentID: student.ID, AmountTotal: money("10"), Currency: "MXN"}, apperror.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Invoices.Create(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateAmountBelowPaid(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")
	inv := createInvoice(t, l, student.ID, "1000.00")

	_, err := l.Payments.Create(ctx, paymentdomain.CreateRequest{InvoiceID: inv.ID, Amount: money("600.00")})
	require.NoError(t, err)

	_, err = l.Invoices.Update(ctx, inv.ID, invoicedomain.UpdateRequest{AmountTotal: ptr(money("500.00"))})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "New amount (500.00) cannot be less than total paid (600.00)", err.Error())

	got, err := l.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.AmountTotal.Equal(money("1000")))
	assert.Equal(t, settlement.StatusPartial, got.Status)
}

func TestUpdateAmountRederivesStatus(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")
	inv := createInvoice(t, l, student.ID, "1000.00")

	_, err := l.Payments.Create(ctx, paymentdomain.CreateRequest{InvoiceID: inv.ID, Amount: money("600.00")})
	require.NoError(t, err)

	updated, err := l.Invoices.Update(ctx, inv.ID, invoicedomain.UpdateRequest{AmountTotal: ptr(money("600.00"))})
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusPaid, updated.Status)

	_, err = l.Invoices.Update(ctx, inv.ID, invoicedomain.UpdateRequest{Description: ptr("late fee")})
	require.ErrorIs(t, err, apperror.ErrInvalidOperation)
	assert.Equal(t, "Cannot update paid invoice", err.Error())
}

func TestUpdateFieldsOnly(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")
	inv := createInvoice(t, l, student.ID, "250.00")

	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	updated, err := l.Invoices.Update(ctx, inv.ID, invoicedomain.UpdateRequest{
		DueDate:     &due,
		Description: ptr("  March tuition "),
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", invoicedomain.FormatDate(updated.DueDate))
	require.NotNil(t, updated.Description)
	assert.Equal(t, "March tuition", *updated.Description)
	assert.Equal(t, settlement.StatusIssued, updated.Status)

	_, err = l.Invoices.Update(ctx, 999, invoicedomain.UpdateRequest{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestVoidTwiceIsNotFound(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")
	inv := createInvoice(t, l, student.ID, "1000.00")

	voided, err := l.Invoices.Void(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusVoid, voided.Status)

	_, err = l.Invoices.Void(ctx, inv.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "Invoice with id "+inv.ID.String()+" not found", err.Error())

	_, err = l.Invoices.Update(ctx, inv.ID, invoicedomain.UpdateRequest{Description: ptr("x")})
	require.ErrorIs(t, err, apperror.ErrInvalidOperation)
	assert.Equal(t, "Cannot update voided invoice", err.Error())

	logs, _, err := l.Audit.List(ctx, auditdomain.ListRequest{TargetType: "invoice", TargetID: inv.ID, Action: "invoice.voided"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, auditdomain.SeverityWarn, logs[0].Severity)
	assert.Equal(t, "ISSUED", logs[0].Metadata["previous_status"])
}

func TestListInvoicesFilters(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	student := setupStudent(t, l, "MXN")

	first := createInvoice(t, l, student.ID, "100.00")
	second := createInvoice(t, l, student.ID, "200.00")
	_, err := l.Invoices.Void(ctx, first.ID)
	require.NoError(t, err)

	all, info, err := l.Invoices.List(ctx, invoicedomain.ListRequest{StudentID: &student.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.False(t, info.HasMore)

	issued := settlement.StatusIssued
	open, _, err := l.Invoices.List(ctx, invoicedomain.ListRequest{Status: &issued})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	page, info, err := l.Invoices.List(ctx, invoicedomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 100, info.Limit)
}
