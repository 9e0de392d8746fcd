package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"github.com/smallbiznis/schoolbilling/internal/validation"
	"github.com/smallbiznis/schoolbilling/pkg/db"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "School"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        schooldomain.Repository
	StudentRepo studentdomain.Repository
	AuditSvc    auditdomain.Service        `optional:"true"`
	Statements  cache.StatementStore       `optional:"true"`
	Ledger      *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        schooldomain.Repository
	studentRepo studentdomain.Repository
	auditSvc    auditdomain.Service
	statements  cache.StatementStore
	ledger      *config.LedgerConfigHolder
}

func New(p Params) schooldomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("school.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		studentRepo: p.StudentRepo,
		auditSvc:    p.AuditSvc,
		statements:  p.Statements,
		ledger:      p.Ledger,
	}
}

func (s *Service) Create(ctx context.Context, req schooldomain.CreateRequest) (*schooldomain.School, error) {
	name, country, currency, err := normalize(req.Name, req.Country, req.Currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	school := &schooldomain.School{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name + " " + country),
		Country:   country,
		Currency:  currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByNameCountry(ctx, tx, name, country)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicate(name, country)
		}
		if err := s.repo.Insert(ctx, tx, school); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicate(name, country)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("create school", err)
	}

	s.emitAudit(ctx, "school.created", auditdomain.SeverityInfo, school, map[string]any{
		"name":     school.Name,
		"country":  school.Country,
		"currency": school.Currency,
	})
	return school, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*schooldomain.School, error) {
	school, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("get school", err)
	}
	if school == nil {
		return nil, apperror.NotFound(entityName, id)
	}
	return school, nil
}

func (s *Service) List(ctx context.Context, req schooldomain.ListRequest) ([]schooldomain.School, pagination.PageInfo, error) {
	cfg := s.ledger.Get()
	page := req.Pagination.Clamp(cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)

	rows, err := s.repo.List(ctx, s.db, schooldomain.ListFilter{IsActive: req.IsActive}, page)
	if err != nil {
		return nil, pagination.PageInfo{}, s.fail("list schools", err)
	}
	rows, info := pagination.Trim(rows, page)

	out := make([]schooldomain.School, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, info, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req schooldomain.UpdateRequest) (*schooldomain.School, error) {
	var (
		updated *schooldomain.School
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if school == nil {
			return apperror.NotFound(entityName, id)
		}
		if !school.IsActive {
			return apperror.InvalidOperation("Cannot update inactive school")
		}

		name, country, currency := school.Name, school.Country, school.Currency
		if req.Name != nil {
			name = *req.Name
		}
		if req.Country != nil {
			country = *req.Country
		}
		if req.Currency != nil {
			currency = *req.Currency
		}
		name, country, currency, err = normalize(name, country, currency)
		if err != nil {
			return err
		}

		if name != school.Name || country != school.Country {
			existing, err := s.repo.FindByNameCountry(ctx, tx, name, country)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != school.ID {
				return duplicate(name, country)
			}
		}

		recordChange(changes, "name", school.Name, name)
		recordChange(changes, "country", school.Country, country)
		recordChange(changes, "currency", school.Currency, currency)

		school.Name = name
		school.Country = country
		school.Currency = currency
		school.Slug = slug.Make(name + " " + country)
		school.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, school); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicate(name, country)
			}
			return err
		}
		updated = school
		return nil
	})
	if err != nil {
		return nil, s.fail("update school", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "school.updated", auditdomain.SeverityInfo, updated, changes)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	var deactivated *schooldomain.School
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if school == nil || !school.IsActive {
			return apperror.NotFound(entityName, id)
		}

		students, err := s.studentRepo.CountBySchool(ctx, tx, id)
		if err != nil {
			return err
		}
		if students > 0 {
			return apperror.InvalidOperation("Cannot delete school with %d students. Remove students first.", students)
		}

		school.IsActive = false
		school.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, school); err != nil {
			return err
		}
		deactivated = school
		return nil
	})
	if err != nil {
		return s.fail("delete school", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "school.deactivated", auditdomain.SeverityWarn, deactivated, map[string]any{
		"name": deactivated.Name,
	})
	return nil
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*schooldomain.School, error) {
	var activated *schooldomain.School
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if school == nil {
			return apperror.NotFound(entityName, id)
		}
		if school.IsActive {
			return apperror.InvalidOperation("School is already active")
		}

		school.IsActive = true
		school.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, school); err != nil {
			return err
		}
		activated = school
		return nil
	})
	if err != nil {
		return nil, s.fail("activate school", err)
	}

	s.invalidate(ctx)
	s.emitAudit(ctx, "school.activated", auditdomain.SeverityInfo, activated, nil)
	return activated, nil
}

func normalize(rawName, rawCountry, rawCurrency string) (string, string, string, error) {
	name, ok := validation.Name(rawName, 255)
	if !ok {
		return "", "", "", apperror.ValidationField("name", errors.New("School name must be between 1 and 255 characters"))
	}
	country, ok := validation.CountryCode(rawCountry)
	if !ok {
		return "", "", "", apperror.ValidationField("country", errors.New("Country must be an ISO 3166-1 alpha-2 code"))
	}
	currency, ok := validation.CurrencyCode(rawCurrency)
	if !ok {
		return "", "", "", apperror.ValidationField("currency", errors.New("Currency must be an ISO 4217 code"))
	}
	return name, country, currency, nil
}

func duplicate(name, country string) error {
	return apperror.AlreadyExists(entityName, "name", name+" in "+country)
}

func recordChange(changes map[string]any, field, before, after string) {
	if before == after {
		return
	}
	changes[field] = map[string]any{"from": before, "to": after}
}

// fail logs storage failures with their cause and converts them; taxonomy
// errors pass through untouched.
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

func (s *Service) emitAudit(ctx context.Context, action string, severity auditdomain.Severity, school *schooldomain.School, metadata map[string]any) {
	if s.auditSvc == nil || school == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "school",
		TargetID:   school.ID,
		Severity:   severity,
		Metadata:   metadata,
	})
}
