package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/smallbiznis/schoolbilling/internal/observability"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	"github.com/smallbiznis/schoolbilling/internal/ratelimit"
	"github.com/smallbiznis/schoolbilling/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	ledger   *testutil.Ledger
	registry *prometheus.Registry
}

func newHarness(t *testing.T, limiter ratelimit.Limiter) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := testutil.NewLedger(t)
	registry := prometheus.NewRegistry()
	engine := NewEngine(observability.Config{}, obsmetrics.NewHTTPMetricsWithRegisterer(registry))
	srv := NewServer(ServerParams{
		Engine:       engine,
		Config:       config.Config{APIPrefix: "/api/v1", APIKey: testAPIKey},
		DB:           ledger.DB,
		AuditSvc:     ledger.Audit,
		SchoolSvc:    ledger.Schools,
		StudentSvc:   ledger.Students,
		InvoiceSvc:   ledger.Invoices,
		PaymentSvc:   ledger.Payments,
		StatementSvc: ledger.Statement,
		Limiter:      limiter,
	})
	srv.RegisterRoutes()
	return &harness{t: t, engine: engine, ledger: ledger, registry: registry}
}

func (h *harness) do(method, path string, body any, key string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func (h *harness) seedInvoice(amount string) (schoolID, studentID, invoiceID string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/schools", map[string]any{
		"name": "Colegio Centro", "country": "MX", "currency": "MXN",
	}, testAPIKey)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	schoolID = decodeData(h.t, rec)["id"].(string)

	rec = h.do(http.MethodPost, "/api/v1/students", map[string]any{
		"school_id": schoolID, "first_name": "Ana", "last_name": "Lopez", "email": "ana@example.com",
	}, testAPIKey)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	studentID = decodeData(h.t, rec)["id"].(string)

	rec = h.do(http.MethodPost, "/api/v1/invoices", map[string]any{
		"student_id": studentID, "amount_total": amount, "currency": "mxn", "due_date": "2026-02-01",
	}, testAPIKey)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	invoiceID = decodeData(h.t, rec)["id"].(string)
	return schoolID, studentID, invoiceID
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAPIKeyRequiredOnWrites(t *testing.T) {
	h := newHarness(t, nil)
	body := map[string]any{"name": "Colegio", "country": "MX", "currency": "MXN"}

	rec := h.do(http.MethodPost, "/api/v1/schools", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errorTypeUnauthorized, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/schools", body, "wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schools", bytes.NewReader([]byte(`{"name":"Colegio","country":"MX","currency":"MXN"}`)))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	out := httptest.NewRecorder()
	h.engine.ServeHTTP(out, req)
	assert.Equal(t, http.StatusCreated, out.Code)

	rec = h.do(http.MethodGet, "/api/v1/schools", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvoiceAndPaymentFlow(t *testing.T) {
	h := newHarness(t, nil)
	_, studentID, invoiceID := h.seedInvoice("1000.00")

	rec := h.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	invoice := decodeData(t, rec)
	assert.Equal(t, "1000.00", invoice["amount_total"])
	assert.Equal(t, "MXN", invoice["currency"])
	assert.Equal(t, "ISSUED", invoice["status"])
	assert.Equal(t, "2026-02-01", invoice["due_date"])

	rec = h.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "600.00", "method": "cash"}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "600.00", decodeData(t, rec)["amount"])
	assert.Equal(t, "CASH", decodeData(t, rec)["method"])

	rec = h.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "500.00"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeValidation, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "400.00"}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, nil, "")
	assert.Equal(t, "PAID", decodeData(t, rec)["status"])

	rec = h.do(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/payments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []paymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "600.00", list.Data[0].Amount)

	rec = h.do(http.MethodGet, "/api/v1/students/"+studentID+"/statement", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var statement struct {
		Data studentStatementResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statement))
	assert.Equal(t, "1000.00", statement.Data.Totals.Invoiced)
	assert.Equal(t, "1000.00", statement.Data.Totals.Paid)
	assert.Equal(t, "0.00", statement.Data.Totals.Pending)
	assert.Len(t, statement.Data.Invoices, 1)
}

func TestVoidInvoiceTwice(t *testing.T) {
	h := newHarness(t, nil)
	_, _, invoiceID := h.seedInvoice("250.00")

	rec := h.do(http.MethodDelete, "/api/v1/invoices/"+invoiceID, nil, testAPIKey)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/invoices/"+invoiceID, nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errorTypeNotFound, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "10.00"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeInvalidOperation, decodeError(t, rec).Type)
}

func TestSchoolDeleteRefusedWithStudents(t *testing.T) {
	h := newHarness(t, nil)
	schoolID, _, _ := h.seedInvoice("100.00")

	rec := h.do(http.MethodDelete, "/api/v1/schools/"+schoolID, nil, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeInvalidOperation, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/schools", map[string]any{
		"name": "Colegio Centro", "country": "MX", "currency": "MXN",
	}, testAPIKey)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSchoolStatement(t *testing.T) {
	h := newHarness(t, nil)
	schoolID, _, invoiceID := h.seedInvoice("300.00")

	rec := h.do(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "100.00"}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/schools/"+schoolID+"/statement", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var statement struct {
		Data schoolStatementResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statement))
	assert.Equal(t, int64(1), statement.Data.StudentCount)
	assert.Equal(t, "200.00", statement.Data.Totals.Pending)
	require.Len(t, statement.Data.Invoices, 1)
	assert.Equal(t, "PARTIAL", statement.Data.Invoices[0].Status)
}

func TestStudentStatementPDF(t *testing.T) {
	h := newHarness(t, nil)
	_, studentID, _ := h.seedInvoice("100.00")

	rec := h.do(http.MethodGet, "/api/v1/students/"+studentID+"/statement.pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t, nil)
	_, studentID, _ := h.seedInvoice("100.00")

	rec := h.do(http.MethodGet, "/api/v1/schools/not-a-number", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/invoices?status=LATE", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", firstKey(decodeError(t, rec).Errors))

	rec = h.do(http.MethodPost, "/api/v1/invoices", map[string]any{
		"student_id": studentID, "amount_total": "10.00", "currency": "MXN", "due_date": "01/02/2026",
	}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/invoices", map[string]any{
		"student_id": studentID, "amount_total": "10.005", "currency": "MXN", "due_date": "2026-03-01",
	}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeValidation, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/invoices", map[string]any{
		"student_id": studentID, "amount_total": "10.00", "currency": "USD", "due_date": "2026-03-01",
	}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeValidation, decodeError(t, rec).Type)

	rec = h.do(http.MethodPost, "/api/v1/students", map[string]any{"school_id": "1"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "first_name")
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Allow", mock.Anything, "POST:"+testAPIKey).Return(ratelimit.Result{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		RetryAfter: 1500 * time.Millisecond,
	}, nil)

	h := newHarness(t, limiter)
	rec := h.do(http.MethodPost, "/api/v1/schools", map[string]any{
		"name": "Colegio", "country": "MX", "currency": "MXN",
	}, testAPIKey)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	limiter.AssertExpectations(t)

	rec = h.do(http.MethodGet, "/api/v1/schools", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPMetricsRecordRouteTemplates(t *testing.T) {
	h := newHarness(t, nil)
	_, _, invoiceID := h.seedInvoice("100.00")

	h.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, nil, "")
	h.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, nil, "")
	h.do(http.MethodGet, "/api/v1/invoices/999", nil, "")

	assert.Equal(t, float64(2), counterValue(t, h.registry, "schoolbilling_http_requests_total", map[string]string{
		"method": "GET", "route": "/api/v1/invoices/:id", "status": "200",
	}))
	assert.Equal(t, float64(1), counterValue(t, h.registry, "schoolbilling_http_requests_total", map[string]string{
		"method": "GET", "route": "/api/v1/invoices/:id", "status": "404",
	}))
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
