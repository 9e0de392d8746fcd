package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
)

// LedgerInvoice is an invoice loaded together with its payment history.
type LedgerInvoice struct {
	invoicedomain.Invoice
	Payments []paymentdomain.Payment `gorm:"foreignKey:InvoiceID"`
}

func (LedgerInvoice) TableName() string { return "invoices" }

// Paid sums the payments attached to the invoice.
func (l LedgerInvoice) Paid() decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(l.Payments))
	for _, p := range l.Payments {
		amounts = append(amounts, p.Amount)
	}
	return settlement.Sum(amounts...)
}

type Totals struct {
	Invoiced decimal.Decimal `json:"invoiced"`
	Paid     decimal.Decimal `json:"paid"`
	Pending  decimal.Decimal `json:"pending"`
}

type InvoiceDetail struct {
	ID          snowflake.ID      `json:"id"`
	StudentID   snowflake.ID      `json:"student_id"`
	AmountTotal decimal.Decimal   `json:"amount_total"`
	Paid        decimal.Decimal   `json:"paid"`
	Pending     decimal.Decimal   `json:"pending"`
	Currency    string            `json:"currency"`
	Status      settlement.Status `json:"status"`
	IssuedAt    time.Time         `json:"issued_at"`
	DueDate     time.Time         `json:"due_date"`
	Description *string           `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type StudentStatement struct {
	Student  studentdomain.Student `json:"student"`
	Currency string                `json:"currency"`
	Totals   Totals                `json:"totals"`
	Invoices []InvoiceDetail       `json:"invoices"`
}

type SchoolStatement struct {
	School       schooldomain.School `json:"school"`
	Currency     string              `json:"currency"`
	StudentCount int64               `json:"student_count"`
	Totals       Totals              `json:"totals"`
	Invoices     []InvoiceDetail     `json:"invoices"`
}

// Aggregate rolls invoices into per-invoice details and overall totals in
// the order given. Voided invoices are skipped. The overall pending figure is
// taken from the totals rather than summed per invoice.
func Aggregate(invoices []LedgerInvoice) ([]InvoiceDetail, Totals) {
	details := make([]InvoiceDetail, 0, len(invoices))
	invoiced := decimal.Zero
	paid := decimal.Zero

	for _, inv := range invoices {
		if inv.IsVoid() {
			continue
		}
		invoicePaid := inv.Paid()
		invoiced = invoiced.Add(inv.AmountTotal)
		paid = paid.Add(invoicePaid)

		details = append(details, InvoiceDetail{
			ID:          inv.ID,
			StudentID:   inv.StudentID,
			AmountTotal: settlement.Normalize(inv.AmountTotal),
			Paid:        invoicePaid,
			Pending:     settlement.Normalize(settlement.Pending(inv.AmountTotal, invoicePaid)),
			Currency:    inv.Currency,
			Status:      inv.Status,
			IssuedAt:    inv.IssuedAt,
			DueDate:     time.Time(inv.DueDate),
			Description: inv.Description,
			CreatedAt:   inv.CreatedAt,
			UpdatedAt:   inv.UpdatedAt,
		})
	}

	totals := Totals{
		Invoiced: settlement.Normalize(invoiced),
		Paid:     settlement.Normalize(paid),
		Pending:  settlement.Normalize(settlement.Pending(invoiced, paid)),
	}
	return details, totals
}
