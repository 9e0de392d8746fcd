package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxReferenceLength = 100

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	AuditSvc    auditdomain.Service  `optional:"true"`
	Statements  cache.StatementStore `optional:"true"`
	Metrics     *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	auditSvc    auditdomain.Service
	statements  cache.StatementStore
	metrics     *obsmetrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		auditSvc:    p.AuditSvc,
		statements:  p.Statements,
		metrics:     p.Metrics,
	}
}

// Create records a payment against an open invoice. The invoice row stays
// locked from the pending check until the status write so concurrent payments
// cannot both pass validation.
func (s *Service) Create(ctx context.Context, req paymentdomain.CreateRequest) (*paymentdomain.Payment, error) {
	var (
		payment   *paymentdomain.Payment
		invoice   *invoicedomain.Invoice
		totalPaid decimal.Decimal
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.invoiceRepo.FindByIDForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NotFound("Invoice", req.InvoiceID)
		}
		if invoice.IsVoid() {
			s.metrics.RecordPaymentRejected(ctx, "void")
			return apperror.InvalidOperation("Cannot create payment for voided invoice")
		}

		method, reference, err := s.checkRequest(ctx, req)
		if err != nil {
			return err
		}

		paidBefore, err := s.repo.SumByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		pending := settlement.Pending(invoice.AmountTotal, paidBefore)
		if err := settlement.ValidatePaymentAmount(req.Amount, pending); err != nil {
			reason := "invalid_amount"
			if errors.Is(err, settlement.ErrExceedsPending) {
				reason = "exceeds_pending"
			}
			s.metrics.RecordPaymentRejected(ctx, reason)
			return apperror.ValidationField("amount", err)
		}

		now := s.clock.Now()
		payment = &paymentdomain.Payment{
			ID:        s.genID.Generate(),
			InvoiceID: invoice.ID,
			Amount:    req.Amount,
			Method:    method,
			Reference: reference,
			PaidAt:    now,
			CreatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}

		totalPaid = paidBefore.Add(req.Amount)
		invoice.Status = settlement.DeriveStatus(invoice.AmountTotal, totalPaid)
		invoice.UpdatedAt = now
		return s.invoiceRepo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return nil, s.fail("create payment", err)
	}

	methodLabel := "UNSPECIFIED"
	if payment.Method != nil {
		methodLabel = string(*payment.Method)
	}

	s.invalidate(ctx)
	s.metrics.RecordPaymentApplied(ctx, methodLabel, invoice.Status.String())
	s.log.Info("payment_applied",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", settlement.Format(payment.Amount)),
		zap.String("method", methodLabel),
		zap.String("total_paid", settlement.Format(totalPaid)),
		zap.String("invoice_status", invoice.Status.String()),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     "payment.created",
			TargetType: "payment",
			TargetID:   payment.ID,
			Severity:   auditdomain.SeverityInfo,
			Metadata: map[string]any{
				"invoice_id":     invoice.ID.String(),
				"amount":         settlement.Format(payment.Amount),
				"method":         methodLabel,
				"total_paid":     settlement.Format(totalPaid),
				"invoice_status": invoice.Status.String(),
			},
		})
	}
	return payment, nil
}

// checkRequest validates the payment fields. It runs once the invoice is known
// to exist and be open, so a missing or void invoice is reported first.
func (s *Service) checkRequest(ctx context.Context, req paymentdomain.CreateRequest) (*paymentdomain.Method, *string, error) {
	if err := settlement.CheckScale(req.Amount); err != nil {
		s.metrics.RecordPaymentRejected(ctx, "precision")
		return nil, nil, apperror.ValidationField("amount", errors.New("Payment amount must have at most 2 decimal places"))
	}

	var method *paymentdomain.Method
	if req.Method != "" {
		parsed, err := paymentdomain.ParseMethod(req.Method)
		if err != nil {
			return nil, nil, apperror.ValidationField("method", errors.New("Payment method must be one of CASH, CARD, TRANSFER, CHECK, OTHER"))
		}
		method = &parsed
	}

	var reference *string
	if req.Reference != nil {
		value, ok := validation.Text(*req.Reference, maxReferenceLength)
		if !ok {
			return nil, nil, apperror.ValidationField("reference", errors.New("Reference must be at most 100 characters"))
		}
		if value != "" {
			reference = &value
		}
	}
	return method, reference, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, s.fail("list payments", err)
	}
	if invoice == nil {
		return nil, apperror.NotFound("Invoice", invoiceID)
	}

	rows, err := s.repo.ListByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return nil, s.fail("list payments", err)
	}
	out := make([]paymentdomain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
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
