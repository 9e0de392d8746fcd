package domain

import (
	"context"

	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	TargetType string
	TargetID   int64
	Action     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*AuditLog, error)
}
