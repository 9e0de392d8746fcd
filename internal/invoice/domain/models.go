package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"gorm.io/datatypes"
)

// Invoice is an amount owed by a student. Its status is derived from the
// payments recorded against it, except VOID which is set explicitly.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	StudentID   snowflake.ID      `gorm:"not null;index" json:"student_id"`
	AmountTotal decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount_total"`
	Currency    string            `gorm:"type:char(3);not null" json:"currency"`
	Status      settlement.Status `gorm:"type:varchar(16);not null;index" json:"status"`
	IssuedAt    time.Time         `gorm:"not null" json:"issued_at"`
	DueDate     datatypes.Date    `gorm:"not null" json:"due_date"`
	Description *string           `gorm:"type:varchar(500)" json:"description,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

func (i Invoice) IsVoid() bool {
	return i.Status == settlement.StatusVoid
}

// Date truncates t to a calendar day in UTC.
func Date(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

const DateLayout = "2006-01-02"

func FormatDate(d datatypes.Date) string {
	return time.Time(d).UTC().Format(DateLayout)
}
