package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
)

type createInvoiceRequest struct {
	StudentID   string           `json:"student_id" binding:"required"`
	AmountTotal *decimal.Decimal `json:"amount_total"`
	Currency    string           `json:"currency" binding:"required,len=3"`
	DueDate     string           `json:"due_date" binding:"required"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
}

type updateInvoiceRequest struct {
	AmountTotal *decimal.Decimal `json:"amount_total"`
	DueDate     *string          `json:"due_date"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
}

type createPaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Method    *string          `json:"method"`
	Reference *string          `json:"reference" binding:"omitempty,max=100"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	studentID, err := parseOptionalSnowflakeID(req.StudentID)
	if err != nil || studentID == nil {
		AbortWithError(c, invalidField("student_id", "student_id must be a valid id"))
		return
	}
	if err := requireAmount("amount_total", req.AmountTotal); err != nil {
		AbortWithError(c, err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		AbortWithError(c, invalidField("due_date", "due_date must be formatted as YYYY-MM-DD"))
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		StudentID:   *studentID,
		AmountTotal: *req.AmountTotal,
		Currency:    req.Currency,
		DueDate:     dueDate,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toInvoiceResponse(*invoice)})
}

func (s *Server) ListInvoices(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	studentID, err := parseOptionalSnowflakeID(c.Query("student_id"))
	if err != nil {
		AbortWithError(c, invalidField("student_id", "student_id must be a valid id"))
		return
	}
	status, err := parseOptionalStatus(strings.ToUpper(c.Query("status")))
	if err != nil {
		AbortWithError(c, invalidField("status", "status must be one of ISSUED, PARTIAL, PAID, VOID"))
		return
	}

	invoices, info, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Pagination: page,
		StudentID:  studentID,
		Status:     status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapList(invoices, toInvoiceResponse), "page_info": info})
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toInvoiceResponse(*invoice)})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseDate(*req.DueDate)
		if err != nil {
			AbortWithError(c, invalidField("due_date", "due_date must be formatted as YYYY-MM-DD"))
			return
		}
		dueDate = &parsed
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), id, invoicedomain.UpdateRequest{
		AmountTotal: req.AmountTotal,
		DueDate:     dueDate,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toInvoiceResponse(*invoice)})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.invoiceSvc.Void(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) CreatePayment(c *gin.Context) {
	invoiceID, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	if err := requireAmount("amount", req.Amount); err != nil {
		AbortWithError(c, err)
		return
	}

	method := ""
	if req.Method != nil {
		method = *req.Method
	}
	payment, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreateRequest{
		InvoiceID: invoiceID,
		Amount:    *req.Amount,
		Method:    method,
		Reference: req.Reference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toPaymentResponse(*payment)})
}

func (s *Server) ListPayments(c *gin.Context) {
	invoiceID, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapList(payments, toPaymentResponse)})
}
