package server

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	statementdomain "github.com/smallbiznis/schoolbilling/internal/statement/domain"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
)

type schoolResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSchoolResponse(s schooldomain.School) schoolResponse {
	return schoolResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		Slug:      s.Slug,
		Country:   s.Country,
		Currency:  s.Currency,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type studentResponse struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toStudentResponse(s studentdomain.Student) studentResponse {
	return studentResponse{
		ID:        s.ID.String(),
		SchoolID:  s.SchoolID.String(),
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type invoiceResponse struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	AmountTotal string    `json:"amount_total"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
	DueDate     string    `json:"due_date"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toInvoiceResponse(inv invoicedomain.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID.String(),
		StudentID:   inv.StudentID.String(),
		AmountTotal: settlement.Format(inv.AmountTotal),
		Currency:    inv.Currency,
		Status:      inv.Status.String(),
		IssuedAt:    inv.IssuedAt,
		DueDate:     invoicedomain.FormatDate(inv.DueDate),
		Description: inv.Description,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

type paymentResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    string    `json:"amount"`
	Method    *string   `json:"method,omitempty"`
	Reference *string   `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentResponse(p paymentdomain.Payment) paymentResponse {
	var method *string
	if p.Method != nil {
		method = lo.ToPtr(string(*p.Method))
	}
	return paymentResponse{
		ID:        p.ID.String(),
		InvoiceID: p.InvoiceID.String(),
		Amount:    settlement.Format(p.Amount),
		Method:    method,
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
	}
}

type totalsResponse struct {
	Invoiced string `json:"invoiced"`
	Paid     string `json:"paid"`
	Pending  string `json:"pending"`
}

func toTotalsResponse(t statementdomain.Totals) totalsResponse {
	return totalsResponse{
		Invoiced: settlement.Format(t.Invoiced),
		Paid:     settlement.Format(t.Paid),
		Pending:  settlement.Format(t.Pending),
	}
}

type invoiceDetailResponse struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	AmountTotal string    `json:"amount_total"`
	Paid        string    `json:"paid"`
	Pending     string    `json:"pending"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
	DueDate     string    `json:"due_date"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toInvoiceDetailResponse(d statementdomain.InvoiceDetail, _ int) invoiceDetailResponse {
	return invoiceDetailResponse{
		ID:          d.ID.String(),
		StudentID:   d.StudentID.String(),
		AmountTotal: settlement.Format(d.AmountTotal),
		Paid:        settlement.Format(d.Paid),
		Pending:     settlement.Format(d.Pending),
		Currency:    d.Currency,
		Status:      d.Status.String(),
		IssuedAt:    d.IssuedAt,
		DueDate:     d.DueDate.Format(dateOnlyLayout),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type studentStatementResponse struct {
	Student  studentResponse         `json:"student"`
	Currency string                  `json:"currency"`
	Totals   totalsResponse          `json:"totals"`
	Invoices []invoiceDetailResponse `json:"invoices"`
}

func toStudentStatementResponse(s statementdomain.StudentStatement) studentStatementResponse {
	return studentStatementResponse{
		Student:  toStudentResponse(s.Student),
		Currency: s.Currency,
		Totals:   toTotalsResponse(s.Totals),
		Invoices: lo.Map(s.Invoices, toInvoiceDetailResponse),
	}
}

type schoolStatementResponse struct {
	School       schoolResponse          `json:"school"`
	Currency     string                  `json:"currency"`
	StudentCount int64                   `json:"student_count"`
	Totals       totalsResponse          `json:"totals"`
	Invoices     []invoiceDetailResponse `json:"invoices"`
}

func toSchoolStatementResponse(s statementdomain.SchoolStatement) schoolStatementResponse {
	return schoolStatementResponse{
		School:       toSchoolResponse(s.School),
		Currency:     s.Currency,
		StudentCount: s.StudentCount,
		Totals:       toTotalsResponse(s.Totals),
		Invoices:     lo.Map(s.Invoices, toInvoiceDetailResponse),
	}
}

type auditLogResponse struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Severity   string         `json:"severity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toAuditLogResponse(a auditdomain.AuditLog, _ int) auditLogResponse {
	return auditLogResponse{
		ID:         a.ID.String(),
		Action:     a.Action,
		TargetType: a.TargetType,
		TargetID:   a.TargetID.String(),
		Severity:   string(a.Severity),
		Metadata:   a.Metadata,
		RequestID:  a.RequestID,
		CreatedAt:  a.CreatedAt,
	}
}

// mapList adapts a single-value mapper to lo.Map.
func mapList[T, R any](items []T, fn func(T) R) []R {
	return lo.Map(items, func(item T, _ int) R { return fn(item) })
}

func requireAmount(field string, value *decimal.Decimal) error {
	if value == nil {
		return invalidField(field, field+" is required")
	}
	return nil
}
