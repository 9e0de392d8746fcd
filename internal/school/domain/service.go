package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
)

type CreateRequest struct {
	Name     string
	Country  string
	Currency string
}

// UpdateRequest replaces only the fields that are set.
type UpdateRequest struct {
	Name     *string
	Country  *string
	Currency *string
}

type ListRequest struct {
	pagination.Pagination
	IsActive *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*School, error)
	GetByID(ctx context.Context, id snowflake.ID) (*School, error)
	List(ctx context.Context, req ListRequest) ([]School, pagination.PageInfo, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*School, error)
	// Delete deactivates the school. It is refused while students remain.
	Delete(ctx context.Context, id snowflake.ID) error
	Activate(ctx context.Context, id snowflake.ID) (*School, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCountry  = errors.New("invalid_country")
	ErrInvalidCurrency = errors.New("invalid_currency")
)
