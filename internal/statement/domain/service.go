package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	StudentStatement(ctx context.Context, studentID snowflake.ID) (*StudentStatement, error)
	SchoolStatement(ctx context.Context, schoolID snowflake.ID) (*SchoolStatement, error)
	// StudentStatementPDF renders the student statement as a PDF document.
	StudentStatementPDF(ctx context.Context, studentID snowflake.ID) ([]byte, error)
}
