package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
)

type CreateRequest struct {
	StudentID   snowflake.ID
	AmountTotal decimal.Decimal
	Currency    string
	DueDate     time.Time
	Description *string
}

// UpdateRequest amends only the fields that are set.
type UpdateRequest struct {
	AmountTotal *decimal.Decimal
	DueDate     *time.Time
	Description *string
}

type ListRequest struct {
	pagination.Pagination
	StudentID *snowflake.ID
	Status    *settlement.Status
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListRequest) ([]Invoice, pagination.PageInfo, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Invoice, error)
	Void(ctx context.Context, id snowflake.ID) (*Invoice, error)
}
