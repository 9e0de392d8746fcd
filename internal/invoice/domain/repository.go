package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	StudentID *snowflake.ID
	Status    *settlement.Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindByIDForUpdate row-locks the invoice for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	CountByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) (int64, error)
}
