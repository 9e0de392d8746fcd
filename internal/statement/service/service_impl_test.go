package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	"github.com/smallbiznis/schoolbilling/internal/config"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	schoolrepo "github.com/smallbiznis/schoolbilling/internal/school/repository"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	statementdomain "github.com/smallbiznis/schoolbilling/internal/statement/domain"
	statementrepo "github.com/smallbiznis/schoolbilling/internal/statement/repository"
	"github.com/smallbiznis/schoolbilling/internal/statement/service"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	studentrepo "github.com/smallbiznis/schoolbilling/internal/student/repository"
	"github.com/smallbiznis/schoolbilling/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	t *testing.T
	l *testutil.Ledger
}

func (f fixture) school(name string) *schooldomain.School {
	f.t.Helper()
	s, err := f.l.Schools.Create(context.Background(), schooldomain.CreateRequest{Name: name, Country: "EC", Currency: "USD"})
	require.NoError(f.t, err)
	return s
}

func (f fixture) student(schoolID snowflake.ID, email string) *studentdomain.Student {
	f.t.Helper()
	s, err := f.l.Students.Create(context.Background(), studentdomain.CreateRequest{
		SchoolID: schoolID, FirstName: "Sofia", LastName: "Vera", Email: email,
	})
	require.NoError(f.t, err)
	return s
}

// invoice creates an invoice and applies paid in one payment when non-zero.
func (f fixture) invoice(studentID snowflake.ID, total, paid string) snowflake.ID {
	f.t.Helper()
	ctx := context.Background()
	f.l.Clock.Advance(time.Minute)
	inv, err := f.l.Invoices.Create(ctx, invoicedomain.CreateRequest{
		StudentID:   studentID,
		AmountTotal: decimal.RequireFromString(total),
		Currency:    "USD",
		DueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(f.t, err)
	if p := decimal.RequireFromString(paid); p.IsPositive() {
		_, err := f.l.Payments.Create(ctx, paymentdomain.CreateRequest{InvoiceID: inv.ID, Amount: p})
		require.NoError(f.t, err)
	}
	return inv.ID
}

func (f fixture) void(id snowflake.ID) {
	f.t.Helper()
	_, err := f.l.Invoices.Void(context.Background(), id)
	require.NoError(f.t, err)
}

func TestStudentStatementExcludesVoid(t *testing.T) {
	l := testutil.NewLedger(t)
	f := fixture{t: t, l: l}
	school := f.school("Unidad Educativa Quito")
	student := f.student(school.ID, "sofia@example.com")

	kept := f.invoice(student.ID, "1000.00", "0")
	f.void(f.invoice(student.ID, "2000.00", "0"))

	st, err := l.Statement.StudentStatement(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", st.Currency)
	assert.Equal(t, student.ID, st.Student.ID)
	assert.Equal(t, "1000.00", settlement.Format(st.Totals.Invoiced))
	assert.Equal(t, "0.00", settlement.Format(st.Totals.Paid))
	assert.Equal(t, "1000.00", settlement.Format(st.Totals.Pending))
	require.Len(t, st.Invoices, 1)
	assert.Equal(t, kept, st.Invoices[0].ID)
}

func TestSchoolStatementAggregatesStudents(t *testing.T) {
	l := testutil.NewLedger(t)
	f := fixture{t: t, l: l}
	school := f.school("Colegio Andino")
	a := f.student(school.ID, "a@example.com")
	b := f.student(school.ID, "b@example.com")

	f.invoice(a.ID, "5000.00", "5000.00")
	f.invoice(a.ID, "2000.00", "1000.00")
	f.invoice(b.ID, "3000.00", "0")
	latest := f.invoice(b.ID, "1000.00", "0")
	f.void(latest)

	// a student of another school must not leak in
	other := f.school("Otra Escuela")
	f.invoice(f.student(other.ID, "c@example.com").ID, "999.00", "0")

	st, err := l.Statement.SchoolStatement(context.Background(), school.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.StudentCount)
	assert.Equal(t, "10000.00", settlement.Format(st.Totals.Invoiced))
	assert.Equal(t, "6000.00", settlement.Format(st.Totals.Paid))
	assert.Equal(t, "4000.00", settlement.Format(st.Totals.Pending))
	require.Len(t, st.Invoices, 3)

	// newest first
	assert.True(t, st.Invoices[0].AmountTotal.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, settlement.StatusPartial, st.Invoices[1].Status)
	assert.Equal(t, "1000.00", settlement.Format(st.Invoices[1].Pending))
	assert.Equal(t, settlement.StatusPaid, st.Invoices[2].Status)
}

func TestStatementNotFound(t *testing.T) {
	l := testutil.NewLedger(t)
	_, err := l.Statement.StudentStatement(context.Background(), 404)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = l.Statement.SchoolStatement(context.Background(), 404)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStatementCacheInvalidatedByPayment(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	f := fixture{t: t, l: l}
	school := f.school("Colegio Sur")
	student := f.student(school.ID, "sur@example.com")
	invoiceID := f.invoice(student.ID, "300.00", "0")

	first, err := l.Statement.StudentStatement(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", settlement.Format(first.Totals.Paid))

	cached, err := l.Statement.StudentStatement(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, cached.Totals.Invoiced.Equal(first.Totals.Invoiced))

	_, err = l.Payments.Create(ctx, paymentdomain.CreateRequest{InvoiceID: invoiceID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	fresh, err := l.Statement.StudentStatement(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", settlement.Format(fresh.Totals.Paid))
	assert.Equal(t, "200.00", settlement.Format(fresh.Totals.Pending))
}

// racingRepo runs afterFetch once, right after the invoices were read.
type racingRepo struct {
	statementdomain.Repository
	afterFetch func()
}

func (r *racingRepo) ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]statementdomain.LedgerInvoice, error) {
	invoices, err := r.Repository.ListByStudent(ctx, db, studentID)
	if r.afterFetch != nil {
		r.afterFetch()
		r.afterFetch = nil
	}
	return invoices, err
}

func TestStatementNotCachedWhenPaymentLandsMidBuild(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	f := fixture{t: t, l: l}
	school := f.school("Colegio Centro")
	student := f.student(school.ID, "centro@example.com")
	invoiceID := f.invoice(student.ID, "1000.00", "0")

	repo := &racingRepo{Repository: statementrepo.Provide()}
	repo.afterFetch = func() {
		_, err := l.Payments.Create(ctx, paymentdomain.CreateRequest{InvoiceID: invoiceID, Amount: decimal.NewFromInt(400)})
		require.NoError(t, err)
	}
	svc := service.New(service.Params{
		DB: l.DB, Log: zap.NewNop(), Clock: l.Clock,
		Repo:        repo,
		StudentRepo: studentrepo.Provide(),
		SchoolRepo:  schoolrepo.Provide(),
		Statements:  l.Statements,
		Ledger:      config.NewStaticLedgerConfigHolder(config.DefaultLedgerConfig()),
	})

	built, err := svc.StudentStatement(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", settlement.Format(built.Totals.Paid))

	next, err := svc.StudentStatement(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "400.00", settlement.Format(next.Totals.Paid))
	assert.Equal(t, "600.00", settlement.Format(next.Totals.Pending))
}

func TestStudentStatementPDF(t *testing.T) {
	l := testutil.NewLedger(t)
	f := fixture{t: t, l: l}
	school := f.school("Colegio PDF")
	student := f.student(school.ID, "pdf@example.com")
	f.invoice(student.ID, "120.50", "20.50")

	out, err := l.Statement.StudentStatementPDF(context.Background(), student.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
