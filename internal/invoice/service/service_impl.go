package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"github.com/smallbiznis/schoolbilling/internal/validation"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	entityName           = "Invoice"
	maxDescriptionLength = 500
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        invoicedomain.Repository
	StudentRepo studentdomain.Repository
	SchoolRepo  schooldomain.Repository
	PaymentRepo paymentdomain.Repository
	AuditSvc    auditdomain.Service        `optional:"true"`
	Statements  cache.StatementStore       `optional:"true"`
	Metrics     *obsmetrics.Metrics        `optional:"true"`
	Ledger      *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        invoicedomain.Repository
	studentRepo studentdomain.Repository
	schoolRepo  schooldomain.Repository
	paymentRepo paymentdomain.Repository
	auditSvc    auditdomain.Service
	statements  cache.StatementStore
	metrics     *obsmetrics.Metrics
	ledger      *config.LedgerConfigHolder
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		studentRepo: p.StudentRepo,
		schoolRepo:  p.SchoolRepo,
		paymentRepo: p.PaymentRepo,
		auditSvc:    p.AuditSvc,
		statements:  p.Statements,
		metrics:     p.Metrics,
		ledger:      p.Ledger,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	if err := validateAmount(req.AmountTotal); err != nil {
		return nil, err
	}
	if req.DueDate.IsZero() {
		return nil, apperror.ValidationField("due_date", errors.New("Due date is required"))
	}
	description, err := normalizeDescription(req.Description)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the student serialises against a concurrent student delete.
		student, err := s.studentRepo.FindByIDForUpdate(ctx, tx, req.StudentID)
		if err != nil {
			return err
		}
		if student == nil {
			return apperror.NotFound("Student", req.StudentID)
		}
		school, err := s.schoolRepo.FindByID(ctx, tx, student.SchoolID)
		if err != nil {
			return err
		}
		if school == nil {
			return apperror.NotFound("School", student.SchoolID)
		}
		if !strings.EqualFold(currency, school.Currency) {
			return apperror.ValidationField("currency", errors.New(
				"Invoice currency ("+currency+") must match school currency ("+school.Currency+")",
			))
		}

		now := s.clock.Now()
		invoice = &invoicedomain.Invoice{
			ID:          s.genID.Generate(),
			StudentID:   student.ID,
			AmountTotal: req.AmountTotal,
			Currency:    currency,
			Status:      settlement.StatusIssued,
			IssuedAt:    now,
			DueDate:     invoicedomain.Date(req.DueDate),
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.Insert(ctx, tx, invoice)
	})
	if err != nil {
		return nil, s.fail("create invoice", err)
	}

	s.invalidate(ctx)
	s.metrics.RecordInvoiceCreated(ctx, invoice.Currency)
	s.emitAudit(ctx, "invoice.created", auditdomain.SeverityInfo, invoice, map[string]any{
		"due_date": formatDate(invoice),
	})
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("get invoice", err)
	}
	if invoice == nil {
		return nil, apperror.NotFound(entityName, id)
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) ([]invoicedomain.Invoice, pagination.PageInfo, error) {
	cfg := s.ledger.Get()
	page := req.Pagination.Clamp(cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)

	rows, err := s.repo.List(ctx, s.db, invoicedomain.ListFilter{
		StudentID: req.StudentID,
		Status:    req.Status,
	}, page)
	if err != nil {
		return nil, pagination.PageInfo{}, s.fail("list invoices", err)
	}
	rows, info := pagination.Trim(rows, page)

	out := make([]invoicedomain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, info, nil
}

// Update amends an open invoice. A new total may not drop below what has
// already been paid; the status is re-derived from the payments on record.
func (s *Service) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateRequest) (*invoicedomain.Invoice, error) {
	if req.AmountTotal != nil {
		if err := validateAmount(*req.AmountTotal); err != nil {
			return nil, err
		}
	}
	var description *string
	if req.Description != nil {
		var err error
		if description, err = normalizeDescription(req.Description); err != nil {
			return nil, err
		}
	}

	var (
		updated        *invoicedomain.Invoice
		previousStatus settlement.Status
		previousAmount decimal.Decimal
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NotFound(entityName, id)
		}
		switch invoice.Status {
		case settlement.StatusVoid:
			return apperror.InvalidOperation("Cannot update voided invoice")
		case settlement.StatusPaid:
			return apperror.InvalidOperation("Cannot update paid invoice")
		}
		previousStatus = invoice.Status
		previousAmount = invoice.AmountTotal

		if req.AmountTotal != nil {
			totalPaid, err := s.paymentRepo.SumByInvoice(ctx, tx, invoice.ID)
			if err != nil {
				return err
			}
			if req.AmountTotal.LessThan(totalPaid) {
				return apperror.ValidationField("amount_total", errors.New(
					"New amount ("+settlement.Format(*req.AmountTotal)+") cannot be less than total paid ("+settlement.Format(totalPaid)+")",
				))
			}
			invoice.AmountTotal = *req.AmountTotal
			invoice.Status = settlement.DeriveStatus(invoice.AmountTotal, totalPaid)
		}
		if req.DueDate != nil {
			if req.DueDate.IsZero() {
				return apperror.ValidationField("due_date", errors.New("Due date is required"))
			}
			invoice.DueDate = invoicedomain.Date(*req.DueDate)
		}
		if req.Description != nil {
			invoice.Description = description
		}

		invoice.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, s.fail("update invoice", err)
	}

	s.invalidate(ctx)
	s.metrics.RecordInvoiceUpdated(ctx, updated.Status.String())
	s.emitAudit(ctx, "invoice.updated", auditdomain.SeverityInfo, updated, map[string]any{
		"previous_status":       previousStatus.String(),
		"previous_amount_total": settlement.Format(previousAmount),
		"due_date":              formatDate(updated),
	})
	return updated, nil
}

// Void moves the invoice to the terminal VOID state. Amount and payments are
// left as recorded. Voiding twice reports the invoice as missing.
func (s *Service) Void(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var (
		voided         *invoicedomain.Invoice
		previousStatus settlement.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil || invoice.IsVoid() {
			return apperror.NotFound(entityName, id)
		}

		previousStatus = invoice.Status
		invoice.Status = settlement.StatusVoid
		invoice.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		voided = invoice
		return nil
	})
	if err != nil {
		return nil, s.fail("void invoice", err)
	}

	s.invalidate(ctx)
	s.metrics.RecordInvoiceVoided(ctx, previousStatus.String())
	s.emitAudit(ctx, "invoice.voided", auditdomain.SeverityWarn, voided, map[string]any{
		"previous_status": previousStatus.String(),
	})
	return voided, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.ValidationField("amount_total", errors.New("Invoice amount must be greater than zero, got "+settlement.Format(amount)))
	}
	if err := settlement.CheckScale(amount); err != nil {
		return apperror.ValidationField("amount_total", errors.New("Invoice amount must have at most 2 decimal places"))
	}
	return nil
}

// normalizeDescription trims the text; blank clears it.
func normalizeDescription(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value, ok := validation.Text(*raw, maxDescriptionLength)
	if !ok {
		return nil, apperror.ValidationField("description", errors.New("Description must be at most 500 characters"))
	}
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

func formatDate(invoice *invoicedomain.Invoice) string {
	return invoicedomain.FormatDate(invoice.DueDate)
}

func (s *Service) fail(op string, err error) error {
	wrapped := apperror.Wrap(op, err)
	if apperror.IsStorage(wrapped) {
		s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	}
	return wrapped
}

func (s *Service) invalidate(ctx context.Context) {
	if s.statements != nil {
		s.statements.Invalidate(ctx)
	}
}

func (s *Service) emitAudit(ctx context.Context, action string, severity auditdomain.Severity, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"student_id":   invoice.StudentID.String(),
		"amount_total": settlement.Format(invoice.AmountTotal),
		"currency":     invoice.Currency,
		"status":       invoice.Status.String(),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "invoice",
		TargetID:   invoice.ID,
		Severity:   severity,
		Metadata:   metadata,
	})
}
