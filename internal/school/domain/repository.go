package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	IsActive *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, school *School) error
	Update(ctx context.Context, db *gorm.DB, school *School) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*School, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*School, error)
	FindByNameCountry(ctx context.Context, db *gorm.DB, name, country string) (*School, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*School, error)
}
