package handler

import (
	"net/http"

	"invoicely/internal/middleware"
	"invoicely/internal/service"
	"invoicely/pkg/pagination"
	"invoicely/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService service.PaymentService
	exportService  service.ExportService
}

func NewInvoiceHandler(
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	exportService service.ExportService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
		exportService:  exportService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", middleware.RequireAuth())
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/stats", h.GetStats)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.GET("/:id/pdf", h.DownloadPDF)
		invoices.POST("/:id/payment-link", h.CreatePaymentLink)
	}

	payments := router.Group("/api/payments", middleware.RequireAuth())
	{
		payments.GET("/verify/:reference", h.VerifyPayment)
	}
}

// CreateInvoice creates a new draft invoice
// @Summary      Create invoice
// @Description  Validates the submission, recomputes totals server-side, and stores the invoice as a draft
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns the user's invoices, newest first
// @Summary      List invoices
// @Description  Lists the user's invoices newest first, optionally filtered by search term and status
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Case-insensitive match on customer name or invoice id"
// @Param        status  query     string  false  "Filter by status (draft, sent, paid, overdue, or all)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.InvoiceFilter{
		Search: c.Query("search"),
		Status: c.DefaultQuery("status", "all"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), userID, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetStats returns summary statistics over the full invoice set
// @Summary      Invoice statistics
// @Description  Counts and money sums folded over the user's full (unfiltered) invoice set
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.StatsResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/invoices/stats [get]
func (h *InvoiceHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.invoiceService.GetStats(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetInvoice fetches one invoice by id
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice patches a persisted invoice
// @Summary      Update invoice
// @Description  Patches fields of an invoice; totals are recomputed whenever items, tax, or discount change
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Invoice Patch"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes an invoice permanently
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id"), userID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "invoice deleted"}))
}

// DownloadPDF streams the invoice as a PDF attachment
// @Summary      Download invoice PDF
// @Description  Renders the invoice with the business profile header and streams it as invoice-<id>.pdf
// @Tags         invoices
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filename, data, err := h.exportService.RenderInvoicePDF(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// CreatePaymentLink requests a hosted payment page for the invoice total
// @Summary      Create payment link
// @Description  Initializes a gateway transaction for the invoice total and returns the hosted payment URL
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      201  {object}  response.Response{data=service.PaymentLinkResponse}
// @Failure      502  {object}  response.Response
// @Router       /api/invoices/{id}/payment-link [post]
func (h *InvoiceHandler) CreatePaymentLink(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	link, err := h.paymentService.CreatePaymentLink(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, link))
}

// VerifyPayment checks the gateway state of a payment reference
// @Summary      Verify payment
// @Description  Looks up the transaction state for one of the user's payment references
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        reference  path      string  true  "Payment reference"
// @Success      200        {object}  response.Response{data=service.VerifyPaymentResponse}
// @Failure      502        {object}  response.Response
// @Router       /api/payments/verify/{reference} [get]
func (h *InvoiceHandler) VerifyPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.paymentService.VerifyPayment(c.Request.Context(), c.Param("reference"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
