package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"invoicely/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Stub services ---

type stubInvoiceService struct {
	createRes service.InvoiceResponse
	createErr error
	getErr    error
	deleteErr error
}

func (s *stubInvoiceService) CreateInvoice(_ context.Context, _ uuid.UUID, _ service.CreateInvoiceRequest) (service.InvoiceResponse, error) {
	return s.createRes, s.createErr
}

func (s *stubInvoiceService) GetInvoice(_ context.Context, _ string, _ uuid.UUID) (service.InvoiceResponse, error) {
	return service.InvoiceResponse{}, s.getErr
}

func (s *stubInvoiceService) ListInvoices(_ context.Context, _ uuid.UUID, _ service.InvoiceFilter) ([]service.InvoiceResponse, int64, error) {
	return nil, 0, nil
}

func (s *stubInvoiceService) GetStats(_ context.Context, _ uuid.UUID) (service.StatsResponse, error) {
	return service.StatsResponse{Paid: "0.00", Pending: "0.00"}, nil
}

func (s *stubInvoiceService) UpdateInvoice(_ context.Context, _ string, _ uuid.UUID, _ service.UpdateInvoiceRequest) (service.InvoiceResponse, error) {
	return service.InvoiceResponse{}, nil
}

func (s *stubInvoiceService) DeleteInvoice(_ context.Context, _ string, _ uuid.UUID) error {
	return s.deleteErr
}

type stubPaymentService struct {
	linkErr error
}

func (s *stubPaymentService) CreatePaymentLink(_ context.Context, _ string, _ uuid.UUID) (service.PaymentLinkResponse, error) {
	if s.linkErr != nil {
		return service.PaymentLinkResponse{}, s.linkErr
	}
	return service.PaymentLinkResponse{
		Reference:        "INV-abcd1234-1700000000000",
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		Amount:           "26.00",
		Currency:         "GHS",
	}, nil
}

func (s *stubPaymentService) VerifyPayment(_ context.Context, _ string, _ uuid.UUID) (service.VerifyPaymentResponse, error) {
	return service.VerifyPaymentResponse{Status: "success"}, nil
}

type stubExportService struct{}

func (s *stubExportService) RenderInvoicePDF(_ context.Context, _ string, _ uuid.UUID) (string, []byte, error) {
	return "invoice-abcd1234.pdf", []byte("%PDF-1.4 test"), nil
}

// testRouter wires the handler behind a middleware that injects the
// authenticated user id, standing in for the JWT middleware.
func testRouter(h *InvoiceHandler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("userID", userID.String()) })

	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/:id", h.GetInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.GET("/:id/pdf", h.DownloadPDF)
		invoices.POST("/:id/payment-link", h.CreatePaymentLink)
	}
	return router
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestCreateInvoiceHandler(t *testing.T) {
	svc := &stubInvoiceService{createRes: service.InvoiceResponse{ID: uuid.NewString(), Status: "draft"}}
	router := testRouter(NewInvoiceHandler(svc, &stubPaymentService{}, &stubExportService{}), uuid.New())

	body := `{"customer_name":"Ama","customer_phone":"0241234567","items":[{"description":"Design","quantity":"1","rate":"100"}]}`
	rec := perform(router, http.MethodPost, "/api/invoices", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data service.InvoiceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "draft", envelope.Data.Status)
}

func TestCreateInvoiceHandlerBindingRejectsMissingItems(t *testing.T) {
	svc := &stubInvoiceService{}
	router := testRouter(NewInvoiceHandler(svc, &stubPaymentService{}, &stubExportService{}), uuid.New())

	rec := perform(router, http.MethodPost, "/api/invoices", `{"customer_name":"Ama","customer_phone":"0241234567","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation maps to 400", service.NewError(service.KindValidation, "bad input"), http.StatusBadRequest},
		{"not found maps to 404", service.NewError(service.KindNotFound, "invoice not found"), http.StatusNotFound},
		{"conflict maps to 409", service.NewError(service.KindConflict, "already in flight"), http.StatusConflict},
		{"payment maps to 502", service.NewError(service.KindPayment, "gateway down"), http.StatusBadGateway},
		{"persistence maps to 500", service.NewError(service.KindPersistence, "db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubInvoiceService{getErr: tt.err}
			router := testRouter(NewInvoiceHandler(svc, &stubPaymentService{}, &stubExportService{}), uuid.New())

			rec := perform(router, http.MethodGet, "/api/invoices/"+uuid.NewString(), "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDownloadPDFHandler(t *testing.T) {
	router := testRouter(NewInvoiceHandler(&stubInvoiceService{}, &stubPaymentService{}, &stubExportService{}), uuid.New())

	rec := perform(router, http.MethodGet, "/api/invoices/"+uuid.NewString()+"/pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-abcd1234.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestCreatePaymentLinkHandler(t *testing.T) {
	router := testRouter(NewInvoiceHandler(&stubInvoiceService{}, &stubPaymentService{}, &stubExportService{}), uuid.New())

	rec := perform(router, http.MethodPost, "/api/invoices/"+uuid.NewString()+"/payment-link", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://checkout.paystack.com/abc123")

	failing := &stubPaymentService{linkErr: service.NewError(service.KindConflict, "a payment link is already being created for this invoice")}
	router = testRouter(NewInvoiceHandler(&stubInvoiceService{}, failing, &stubExportService{}), uuid.New())
	rec = perform(router, http.MethodPost, "/api/invoices/"+uuid.NewString()+"/payment-link", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
