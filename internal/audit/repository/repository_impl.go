package repository

import (
	"context"

	"github.com/smallbiznis/schoolbilling/internal/audit/domain"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"github.com/smallbiznis/schoolbilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.AuditLog]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.store.Insert(ctx, db, entry)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AuditLog, error) {
	var opts []option.QueryOption
	if filter.Action != "" {
		opts = append(opts, option.Where("action = ?", filter.Action))
	}
	if filter.TargetType != "" {
		opts = append(opts, option.Where("target_type = ?", filter.TargetType))
	}
	if filter.TargetID != 0 {
		opts = append(opts, option.Where("target_id = ?", filter.TargetID))
	}
	return r.store.Page(ctx, db, page, "created_at desc, id desc", opts...)
}
