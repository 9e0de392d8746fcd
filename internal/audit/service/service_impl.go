package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	obscontext "github.com/smallbiznis/schoolbilling/internal/observability/context"
	obslogger "github.com/smallbiznis/schoolbilling/internal/observability/logger"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   auditdomain.Repository
	Ledger *config.LedgerConfigHolder `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   auditdomain.Repository
	ledger *config.LedgerConfigHolder
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("audit.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
	}
}

// Record persists the entry and mirrors it to the log at its severity. A
// failed insert is logged and returned; callers treat it as best effort.
func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	severity := entry.Severity
	if severity == "" {
		severity = auditdomain.SeverityInfo
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := datatypes.JSONMap{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   entry.TargetID,
		Severity:   severity,
		Metadata:   payload,
		RequestID:  obscontext.RequestIDFromContext(ctx),
		CreatedAt:  s.clock.Now(),
	}

	log := obslogger.WithContext(ctx, s.log)
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("target_type", targetType),
		zap.String("target_id", entry.TargetID.String()),
		zap.Any("metadata", entry.Metadata),
	}
	if severity == auditdomain.SeverityWarn {
		log.Warn(action, fields...)
	} else {
		log.Info(action, fields...)
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) ([]auditdomain.AuditLog, pagination.PageInfo, error) {
	cfg := s.ledger.Get()
	page := req.Pagination.Clamp(cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)

	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   int64(req.TargetID),
		Action:     strings.TrimSpace(req.Action),
	}, page)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	rows, info := pagination.Trim(rows, page)
	out := make([]auditdomain.AuditLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, info, nil
}
