package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/schoolbilling/internal/audit"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/smallbiznis/schoolbilling/internal/invoice"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	"github.com/smallbiznis/schoolbilling/internal/observability"
	obslogger "github.com/smallbiznis/schoolbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	obstracing "github.com/smallbiznis/schoolbilling/internal/observability/tracing"
	"github.com/smallbiznis/schoolbilling/internal/payment"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	"github.com/smallbiznis/schoolbilling/internal/providers/pdf"
	"github.com/smallbiznis/schoolbilling/internal/ratelimit"
	"github.com/smallbiznis/schoolbilling/internal/school"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/statement"
	statementdomain "github.com/smallbiznis/schoolbilling/internal/statement/domain"
	"github.com/smallbiznis/schoolbilling/internal/student"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	cache.Module,
	pdf.Module,
	audit.Module,
	school.Module,
	student.Module,
	invoice.Module,
	payment.Module,
	statement.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("api_prefix", cfg.APIPrefix))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB

	auditSvc     auditdomain.Service
	schoolSvc    schooldomain.Service
	studentSvc   studentdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	statementSvc statementdomain.Service

	limiter ratelimit.Limiter
	metrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Engine *gin.Engine
	Config config.Config
	DB     *gorm.DB

	AuditSvc     auditdomain.Service
	SchoolSvc    schooldomain.Service
	StudentSvc   studentdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	StatementSvc statementdomain.Service

	Limiter ratelimit.Limiter   `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Engine,
		cfg:          p.Config,
		db:           p.DB,
		auditSvc:     p.AuditSvc,
		schoolSvc:    p.SchoolSvc,
		studentSvc:   p.StudentSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		statementSvc: p.StatementSvc,
		limiter:      p.Limiter,
		metrics:      p.Metrics,
	}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterRoutes mounts the health check and the ledger API under the
// configured prefix. Reads are public; writes need the API key and are rate
// limited.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group(s.cfg.APIPrefix)
	write := []gin.HandlerFunc{APIKeyRequired(s.cfg.APIKey), RateLimit(s.limiter, s.metrics)}
	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), h)
	}

	schools := api.Group("/schools")
	schools.GET("", s.ListSchools)
	schools.POST("", guarded(s.CreateSchool)...)
	schools.GET("/:id", s.GetSchool)
	schools.PATCH("/:id", guarded(s.UpdateSchool)...)
	schools.DELETE("/:id", guarded(s.DeleteSchool)...)
	schools.PATCH("/:id/activate", guarded(s.ActivateSchool)...)
	schools.GET("/:id/statement", s.GetSchoolStatement)

	students := api.Group("/students")
	students.GET("", s.ListStudents)
	students.POST("", guarded(s.CreateStudent)...)
	students.GET("/:id", s.GetStudent)
	students.PATCH("/:id", guarded(s.UpdateStudent)...)
	students.DELETE("/:id", guarded(s.DeleteStudent)...)
	students.GET("/:id/statement", s.GetStudentStatement)
	students.GET("/:id/statement.pdf", s.GetStudentStatementPDF)

	invoices := api.Group("/invoices")
	invoices.GET("", s.ListInvoices)
	invoices.POST("", guarded(s.CreateInvoice)...)
	invoices.GET("/:id", s.GetInvoice)
	invoices.PATCH("/:id", guarded(s.UpdateInvoice)...)
	invoices.DELETE("/:id", guarded(s.VoidInvoice)...)
	invoices.POST("/:id/payments", guarded(s.CreatePayment)...)
	invoices.GET("/:id/payments", s.ListPayments)

	api.GET("/audit-logs", append([]gin.HandlerFunc{APIKeyRequired(s.cfg.APIKey)}, s.ListAuditLogs)...)
}

// Health reports liveness and whether the database answers.
func (s *Server) Health(c *gin.Context) {
	database := "ok"
	if sqlDB, err := s.db.DB(); err != nil {
		database = "unavailable"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			database = "unavailable"
		}
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": database})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": database})
}
