package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	"github.com/smallbiznis/schoolbilling/internal/providers/pdf"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	statementdomain "github.com/smallbiznis/schoolbilling/internal/statement/domain"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	scopeStudent = "student"
	scopeSchool  = "school"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        statementdomain.Repository
	StudentRepo studentdomain.Repository
	SchoolRepo  schooldomain.Repository
	PDF         pdf.Provider               `optional:"true"`
	Statements  cache.StatementStore       `optional:"true"`
	Metrics     *obsmetrics.Metrics        `optional:"true"`
	Ledger      *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        statementdomain.Repository
	studentRepo studentdomain.Repository
	schoolRepo  schooldomain.Repository
	pdf         pdf.Provider
	statements  cache.StatementStore
	metrics     *obsmetrics.Metrics
	ledger      *config.LedgerConfigHolder
}

func New(p Params) statementdomain.Service {
	renderer := p.PDF
	if renderer == nil {
		renderer = pdf.New()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("statement.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		studentRepo: p.StudentRepo,
		schoolRepo:  p.SchoolRepo,
		pdf:         renderer,
		statements:  p.Statements,
		metrics:     p.Metrics,
		ledger:      p.Ledger,
	}
}

func (s *Service) StudentStatement(ctx context.Context, studentID snowflake.ID) (*statementdomain.StudentStatement, error) {
	key := cache.StatementKey(scopeStudent, studentID.Int64())
	var cached statementdomain.StudentStatement
	gen, hit := s.lookup(ctx, scopeStudent, key, &cached)
	if hit {
		return &cached, nil
	}

	start := s.clock.Now()
	student, err := s.studentRepo.FindByID(ctx, s.db, studentID)
	if err != nil {
		return nil, s.fail("build student statement", err)
	}
	if student == nil {
		return nil, apperror.NotFound("Student", studentID)
	}
	school, err := s.schoolRepo.FindByID(ctx, s.db, student.SchoolID)
	if err != nil {
		return nil, s.fail("build student statement", err)
	}
	if school == nil {
		return nil, apperror.NotFound("School", student.SchoolID)
	}

	invoices, err := s.repo.ListByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, s.fail("build student statement", err)
	}
	details, totals := statementdomain.Aggregate(invoices)

	statement := &statementdomain.StudentStatement{
		Student:  *student,
		Currency: school.Currency,
		Totals:   totals,
		Invoices: details,
	}

	elapsed := s.clock.Now().Sub(start)
	s.metrics.RecordStatement(ctx, scopeStudent, elapsed)
	s.log.Info("student_statement_generated", append(logTotals(len(details), totals, elapsed),
		zap.String("student_id", studentID.String()),
		zap.String("school_id", student.SchoolID.String()),
	)...)

	s.store(ctx, key, gen, statement)
	return statement, nil
}

func (s *Service) SchoolStatement(ctx context.Context, schoolID snowflake.ID) (*statementdomain.SchoolStatement, error) {
	key := cache.StatementKey(scopeSchool, schoolID.Int64())
	var cached statementdomain.SchoolStatement
	gen, hit := s.lookup(ctx, scopeSchool, key, &cached)
	if hit {
		return &cached, nil
	}

	start := s.clock.Now()
	school, err := s.schoolRepo.FindByID(ctx, s.db, schoolID)
	if err != nil {
		return nil, s.fail("build school statement", err)
	}
	if school == nil {
		return nil, apperror.NotFound("School", schoolID)
	}

	studentCount, err := s.studentRepo.CountBySchool(ctx, s.db, schoolID)
	if err != nil {
		return nil, s.fail("build school statement", err)
	}
	invoices, err := s.repo.ListBySchool(ctx, s.db, schoolID)
	if err != nil {
		return nil, s.fail("build school statement", err)
	}
	details, totals := statementdomain.Aggregate(invoices)

	statement := &statementdomain.SchoolStatement{
		School:       *school,
		Currency:     school.Currency,
		StudentCount: studentCount,
		Totals:       totals,
		Invoices:     details,
	}

	elapsed := s.clock.Now().Sub(start)
	s.metrics.RecordStatement(ctx, scopeSchool, elapsed)
	s.log.Info("school_statement_generated", append(logTotals(len(details), totals, elapsed),
		zap.String("school_id", schoolID.String()),
		zap.Int64("student_count", studentCount),
	)...)

	s.store(ctx, key, gen, statement)
	return statement, nil
}

func (s *Service) StudentStatementPDF(ctx context.Context, studentID snowflake.ID) ([]byte, error) {
	statement, err := s.StudentStatement(ctx, studentID)
	if err != nil {
		return nil, err
	}
	school, err := s.schoolRepo.FindByID(ctx, s.db, statement.Student.SchoolID)
	if err != nil {
		return nil, s.fail("render student statement", err)
	}

	doc := pdf.StatementDocument{
		Title:         "Account statement",
		AccountName:   statement.Student.FullName(),
		AccountRef:    statement.Student.Email,
		Currency:      statement.Currency,
		GeneratedAt:   s.clock.Now().Format(invoicedomain.DateLayout),
		TotalInvoiced: settlement.Format(statement.Totals.Invoiced),
		TotalPaid:     settlement.Format(statement.Totals.Paid),
		TotalPending:  settlement.Format(statement.Totals.Pending),
	}
	if school != nil {
		doc.SchoolName = school.Name
	}
	for _, inv := range statement.Invoices {
		line := pdf.StatementLine{
			Reference: "#" + inv.ID.String(),
			IssuedAt:  inv.IssuedAt.Format(invoicedomain.DateLayout),
			DueDate:   inv.DueDate.Format(invoicedomain.DateLayout),
			Status:    inv.Status.String(),
			Amount:    settlement.Format(inv.AmountTotal),
			Paid:      settlement.Format(inv.Paid),
			Pending:   settlement.Format(inv.Pending),
		}
		if inv.Description != nil {
			line.Description = *inv.Description
		}
		doc.Lines = append(doc.Lines, line)
	}

	out, err := s.pdf.RenderStatement(ctx, doc)
	if err != nil {
		s.log.Error("statement pdf rendering failed", zap.String("student_id", studentID.String()), zap.Error(err))
		return nil, apperror.Storage("render student statement", err)
	}
	return out, nil
}

// lookup returns the cache generation observed before any ledger read so the
// built statement is only stored if nothing was invalidated meanwhile.
func (s *Service) lookup(ctx context.Context, scope, key string, dst any) (string, bool) {
	if s.statements == nil {
		return "", false
	}
	raw, gen, ok := s.statements.Get(ctx, key)
	if !ok {
		return gen, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("discarding undecodable cached statement", zap.String("key", key), zap.Error(err))
		return gen, false
	}
	s.metrics.RecordStatementCacheHit(ctx, scope)
	return gen, true
}

func (s *Service) store(ctx context.Context, key, gen string, statement any) {
	if s.statements == nil {
		return
	}
	ttl := s.ledger.Get().Statements.CacheTTL
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(statement)
	if err != nil {
		s.log.Warn("statement cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.statements.Set(ctx, key, gen, raw, ttl)
}

func logTotals(count int, totals statementdomain.Totals, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int("invoice_count", count),
		zap.String("total_invoiced", settlement.Format(totals.Invoiced)),
		zap.String("total_paid", settlement.Format(totals.Paid)),
		zap.String("total_pending", settlement.Format(totals.Pending)),
		zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	}
}

func (s *Service) fail(op string, err error) error {
	wrapped := apperror.Wrap(op, err)
	if apperror.IsStorage(wrapped) {
		s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	}
	return wrapped
}
