package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"github.com/smallbiznis/schoolbilling/internal/validation"
	"github.com/smallbiznis/schoolbilling/pkg/db"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "Student"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        studentdomain.Repository
	SchoolRepo  schooldomain.Repository
	InvoiceRepo invoicedomain.Repository
	AuditSvc    auditdomain.Service        `optional:"true"`
	Statements  cache.StatementStore       `optional:"true"`
	Ledger      *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        studentdomain.Repository
	schoolRepo  schooldomain.Repository
	invoiceRepo invoicedomain.Repository
	auditSvc    auditdomain.Service
	statements  cache.StatementStore
	ledger      *config.LedgerConfigHolder
}

func New(p Params) studentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("student.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		schoolRepo:  p.SchoolRepo,
		invoiceRepo: p.InvoiceRepo,
		auditSvc:    p.AuditSvc,
		statements:  p.Statements,
		ledger:      p.Ledger,
	}
}

func (s *Service) Create(ctx context.Context, req studentdomain.CreateRequest) (*studentdomain.Student, error) {
	firstName, lastName, email, err := normalize(req.FirstName, req.LastName, req.Email)
	if err != nil {
		return nil, err
	}

	var student *studentdomain.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, err := s.schoolRepo.FindByIDForUpdate(ctx, tx, req.SchoolID)
		if err != nil {
			return err
		}
		if school == nil || !school.IsActive {
			return apperror.NotFound("School", req.SchoolID)
		}

		existing, err := s.repo.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.AlreadyExists(entityName, "email", email)
		}

		now := s.clock.Now()
		student = &studentdomain.Student{
			ID:        s.genID.Generate(),
			SchoolID:  school.ID,
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, student); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return apperror.AlreadyExists(entityName, "email", email)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("create student", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "student.created", auditdomain.SeverityInfo, student, map[string]any{
		"school_id": student.SchoolID.String(),
		"email":     student.Email,
	})
	return student, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*studentdomain.Student, error) {
	student, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("get student", err)
	}
	if student == nil {
		return nil, apperror.NotFound(entityName, id)
	}
	return student, nil
}

func (s *Service) List(ctx context.Context, req studentdomain.ListRequest) ([]studentdomain.Student, pagination.PageInfo, error) {
	cfg := s.ledger.Get()
	page := req.Pagination.Clamp(cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)

	rows, err := s.repo.List(ctx, s.db, studentdomain.ListFilter{SchoolID: req.SchoolID}, page)
	if err != nil {
		return nil, pagination.PageInfo{}, s.fail("list students", err)
	}
	rows, info := pagination.Trim(rows, page)

	out := make([]studentdomain.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, info, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req studentdomain.UpdateRequest) (*studentdomain.Student, error) {
	var updated *studentdomain.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if student == nil {
			return apperror.NotFound(entityName, id)
		}

		firstName, lastName, email := student.FirstName, student.LastName, student.Email
		if req.FirstName != nil {
			firstName = *req.FirstName
		}
		if req.LastName != nil {
			lastName = *req.LastName
		}
		if req.Email != nil {
			email = *req.Email
		}
		firstName, lastName, email, err = normalize(firstName, lastName, email)
		if err != nil {
			return err
		}

		if email != student.Email {
			existing, err := s.repo.FindByEmail(ctx, tx, email)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != student.ID {
				return apperror.AlreadyExists(entityName, "email", email)
			}
		}

		student.FirstName = firstName
		student.LastName = lastName
		student.Email = email
		student.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, student); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return apperror.AlreadyExists(entityName, "email", email)
			}
			return err
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, s.fail("update student", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "student.updated", auditdomain.SeverityInfo, updated, map[string]any{
		"email": updated.Email,
	})
	return updated, nil
}

// Delete removes the student permanently. Any invoice, voided or not, blocks
// the deletion.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	var deleted *studentdomain.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if student == nil {
			return apperror.NotFound(entityName, id)
		}

		invoices, err := s.invoiceRepo.CountByStudent(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoices > 0 {
			return apperror.InvalidOperation("Cannot delete student with invoices. Void invoices first.")
		}

		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		deleted = student
		return nil
	})
	if err != nil {
		return s.fail("delete student", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "student.deleted", auditdomain.SeverityWarn, deleted, map[string]any{
		"school_id": deleted.SchoolID.String(),
		"email":     deleted.Email,
	})
	return nil
}

func normalize(rawFirst, rawLast, rawEmail string) (string, string, string, error) {
	firstName, ok := validation.Name(rawFirst, 100)
	if !ok {
		return "", "", "", apperror.ValidationField("first_name", errors.New("First name must be between 1 and 100 characters"))
	}
	lastName, ok := validation.Name(rawLast, 100)
	if !ok {
		return "", "", "", apperror.ValidationField("last_name", errors.New("Last name must be between 1 and 100 characters"))
	}
	email, ok := validation.Email(rawEmail)
	if !ok {
		return "", "", "", apperror.ValidationField("email", errors.New("Email address is not valid"))
	}
	return firstName, lastName, email, nil
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

func (s *Service) emitAudit(ctx context.Context, action string, severity auditdomain.Severity, student *studentdomain.Student, metadata map[string]any) {
	if s.auditSvc == nil || student == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "student",
		TargetID:   student.ID,
		Severity:   severity,
		Metadata:   metadata,
	})
}
