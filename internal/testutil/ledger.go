package testutil

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	auditrepo "github.com/smallbiznis/schoolbilling/internal/audit/repository"
	auditservice "github.com/smallbiznis/schoolbilling/internal/audit/service"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/schoolbilling/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/schoolbilling/internal/invoice/service"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/schoolbilling/internal/payment/repository"
	paymentservice "github.com/smallbiznis/schoolbilling/internal/payment/service"
	"github.com/smallbiznis/schoolbilling/internal/providers/pdf"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	schoolrepo "github.com/smallbiznis/schoolbilling/internal/school/repository"
	schoolservice "github.com/smallbiznis/schoolbilling/internal/school/service"
	statementdomain "github.com/smallbiznis/schoolbilling/internal/statement/domain"
	statementrepo "github.com/smallbiznis/schoolbilling/internal/statement/repository"
	statementservice "github.com/smallbiznis/schoolbilling/internal/statement/service"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	studentrepo "github.com/smallbiznis/schoolbilling/internal/student/repository"
	studentservice "github.com/smallbiznis/schoolbilling/internal/student/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger bundles every service over one in-memory database.
type Ledger struct {
	DB         *gorm.DB
	Clock      *clock.FakeClock
	GenID      *snowflake.Node
	Statements cache.StatementStore

	Audit     auditdomain.Service
	Schools   schooldomain.Service
	Students  studentdomain.Service
	Invoices  invoicedomain.Service
	Payments  paymentdomain.Service
	Statement statementdomain.Service
}

func NewLedger(t *testing.T) *Ledger {
	t.Helper()

	db := NewDB(t)
	log := zap.NewNop()
	clk := NewClock()
	genID := NewIDGen(t)
	holder := config.NewStaticLedgerConfigHolder(config.DefaultLedgerConfig())
	statements := cache.NewMemoryStatementStore()

	schools := schoolrepo.Provide()
	students := studentrepo.Provide()
	invoices := invoicerepo.Provide()
	payments := paymentrepo.Provide()

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: genID, Clock: clk,
		Repo:   auditrepo.Provide(),
		Ledger: holder,
	})

	return &Ledger{
		DB:         db,
		Clock:      clk,
		GenID:      genID,
		Statements: statements,
		Audit:      audit,
		Schools: schoolservice.New(schoolservice.Params{
			DB: db, Log: log, GenID: genID, Clock: clk,
			Repo:        schools,
			StudentRepo: students,
			AuditSvc:    audit,
			Statements:  statements,
			Ledger:      holder,
		}),
		Students: studentservice.New(studentservice.Params{
			DB: db, Log: log, GenID: genID, Clock: clk,
			Repo:        students,
			SchoolRepo:  schools,
			InvoiceRepo: invoices,
			AuditSvc:    audit,
			Statements:  statements,
			Ledger:      holder,
		}),
		Invoices: invoiceservice.New(invoiceservice.Params{
			DB: db, Log: log, GenID: genID, Clock: clk,
			Repo:        invoices,
			StudentRepo: students,
			SchoolRepo:  schools,
			PaymentRepo: payments,
			AuditSvc:    audit,
			Statements:  statements,
			Ledger:      holder,
		}),
		Payments: paymentservice.New(paymentservice.Params{
			DB: db, Log: log, GenID: genID, Clock: clk,
			Repo:        payments,
			InvoiceRepo: invoices,
			AuditSvc:    audit,
			Statements:  statements,
		}),
		Statement: statementservice.New(statementservice.Params{
			DB: db, Log: log, Clock: clk,
			Repo:        statementrepo.Provide(),
			StudentRepo: students,
			SchoolRepo:  schools,
			PDF:         pdf.New(),
			Statements:  statements,
			Ledger:      holder,
		}),
	}
}
