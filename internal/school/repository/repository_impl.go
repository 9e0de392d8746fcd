package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"github.com/smallbiznis/schoolbilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.School]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, school *domain.School) error {
	return r.store.Insert(ctx, db, school)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, school *domain.School) error {
	return r.store.UpdateColumns(ctx, db, school.ID, map[string]any{
		"name":       school.Name,
		"slug":       school.Slug,
		"country":    school.Country,
		"currency":   school.Currency,
		"is_active":  school.IsActive,
		"updated_at": school.UpdatedAt,
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.School, error) {
	return r.store.ByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.School, error) {
	return r.store.ByID(ctx, db, id, true)
}

func (r *repo) FindByNameCountry(ctx context.Context, db *gorm.DB, name, country string) (*domain.School, error) {
	return r.store.First(ctx, db, option.Where("name = ? AND country = ?", name, country))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.School, error) {
	var opts []option.QueryOption
	if filter.IsActive != nil {
		opts = append(opts, option.Where("is_active = ?", *filter.IsActive))
	}
	return r.store.Page(ctx, db, page, "created_at desc, id desc", opts...)
}
