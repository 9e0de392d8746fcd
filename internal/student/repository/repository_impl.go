package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/student/domain"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"github.com/smallbiznis/schoolbilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Student]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return r.store.Insert(ctx, db, student)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return r.store.UpdateColumns(ctx, db, student.ID, map[string]any{
		"first_name": student.FirstName,
		"last_name":  student.LastName,
		"email":      student.Email,
		"updated_at": student.UpdatedAt,
	})
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return r.store.Delete(ctx, db, id)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	return r.store.ByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	return r.store.ByID(ctx, db, id, true)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Student, error) {
	return r.store.First(ctx, db, option.Where("email = ?", email))
}

// List orders a single school's roster alphabetically and everything else
// newest first.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Student, error) {
	if filter.SchoolID != nil {
		return r.store.Page(ctx, db, page, "last_name asc, first_name asc, id asc",
			option.Where("school_id = ?", *filter.SchoolID))
	}
	return r.store.Page(ctx, db, page, "created_at desc, id desc")
}

func (r *repo) CountBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (int64, error) {
	return r.store.Count(ctx, db, option.Where("school_id = ?", schoolID))
}
