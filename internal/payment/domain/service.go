package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	InvoiceID snowflake.ID
	Amount    decimal.Decimal
	Method    string
	Reference *string
}

type Service interface {
	// Create applies a payment and recomputes the invoice status in the same
	// transaction.
	Create(ctx context.Context, req CreateRequest) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}
