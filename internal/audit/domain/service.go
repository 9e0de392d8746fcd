package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
)

// Entry describes a mutation to record.
type Entry struct {
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Severity   Severity
	Metadata   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	TargetType string
	TargetID   snowflake.ID
	Action     string
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) ([]AuditLog, pagination.PageInfo, error)
}

var ErrInvalidAction = errors.New("invalid_action")
