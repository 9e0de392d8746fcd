package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository fetches non-void invoices with payments, newest first, without
// a row limit.
type Repository interface {
	ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]LedgerInvoice, error)
	ListBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]LedgerInvoice, error)
}
