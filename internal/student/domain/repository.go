package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	SchoolID *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, student *Student) error
	Update(ctx context.Context, db *gorm.DB, student *Student) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Student, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Student, error)
	CountBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (int64, error)
}
