package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
)

type CreateRequest struct {
	SchoolID  snowflake.ID
	FirstName string
	LastName  string
	Email     string
}

// UpdateRequest replaces only the fields that are set. The owning school
// cannot change.
type UpdateRequest struct {
	FirstName *string
	LastName  *string
	Email     *string
}

type ListRequest struct {
	pagination.Pagination
	SchoolID *snowflake.ID
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Student, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Student, error)
	List(ctx context.Context, req ListRequest) ([]Student, pagination.PageInfo, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Student, error)
	Delete(ctx context.Context, id snowflake.ID) error
}
