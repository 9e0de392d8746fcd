package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash     Method = "CASH"
	MethodCard     Method = "CARD"
	MethodTransfer Method = "TRANSFER"
	MethodCheck    Method = "CHECK"
	MethodOther    Method = "OTHER"
)

var ErrInvalidMethod = errors.New("invalid_method")

func ParseMethod(raw string) (Method, error) {
	method := Method(strings.ToUpper(strings.TrimSpace(raw)))
	switch method {
	case MethodCash, MethodCard, MethodTransfer, MethodCheck, MethodOther:
		return method, nil
	default:
		return "", ErrInvalidMethod
	}
}

// Payment is an immutable ledger line applied to one invoice.
type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method    *Method         `gorm:"type:varchar(50)" json:"method,omitempty"`
	Reference *string         `gorm:"type:varchar(100)" json:"reference,omitempty"`
	PaidAt    time.Time       `gorm:"not null;index" json:"paid_at"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
