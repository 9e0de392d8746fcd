package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"github.com/smallbiznis/schoolbilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Invoice]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return r.store.Insert(ctx, db, invoice)
}

// Update writes the mutable columns. student_id, currency and issued_at never
// change after creation.
func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return r.store.UpdateColumns(ctx, db, invoice.ID, map[string]any{
		"amount_total": invoice.AmountTotal,
		"status":       invoice.Status,
		"due_date":     invoice.DueDate,
		"description":  invoice.Description,
		"updated_at":   invoice.UpdatedAt,
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.store.ByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.store.ByID(ctx, db, id, true)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var opts []option.QueryOption
	if filter.StudentID != nil {
		opts = append(opts, option.Where("student_id = ?", *filter.StudentID))
	}
	if filter.Status != nil {
		opts = append(opts, option.Where("status = ?", *filter.Status))
	}
	return r.store.Page(ctx, db, page, "created_at desc, id desc", opts...)
}

func (r *repo) CountByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) (int64, error) {
	return r.store.Count(ctx, db, option.Where("student_id = ?", studentID))
}
