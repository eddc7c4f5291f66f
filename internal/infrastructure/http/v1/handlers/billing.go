package handlers

import (
	"github.com/gin-gonic/gin"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/billing"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// BillingHandler handles HTTP requests for invoices and payments.
type BillingHandler struct {
	*BaseHandler
	service  *billing.Service
	invoices billing.InvoiceRepository
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(base *BaseHandler, service *billing.Service, invoices billing.InvoiceRepository) *BillingHandler {
	return &BillingHandler{BaseHandler: base, service: service, invoices: invoices}
}

// GetInvoice handles GET /invoices/:id
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// ListInvoices handles GET /invoices
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	var query dto.InvoiceListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := billing.InvoiceFilter{
		OwnerID:  OptionalID(query.OwnerID),
		FromDate: OptionalTime(query.FromDate),
		ToDate:   OptionalTime(query.ToDate),
		Limit:    query.PageSize,
		Offset:   query.Offset(),
	}
	if query.Status != "" {
		status := billing.PaymentStatus(query.Status)
		filter.Status = &status
	}

	invoices, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      invoices,
		TotalCount: len(invoices),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}

// CreatePayment handles POST /payments
func (h *BillingHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoiceID, err := id.Parse(req.InvoiceID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoiceId format"))
		return
	}

	result, err := h.service.CreatePayment(c.Request.Context(), billing.CreatePaymentInput{
		InvoiceID:    invoiceID,
		Amount:       moneyOrZero(req.Amount),
		Currency:     req.Currency,
		ExchangeRate: moneyOrZero(req.ExchangeRate),
		MethodID:     OptionalID(req.MethodID),
		Reference:    req.Reference,
		CreditAmount: moneyOrZero(req.CreditAmount),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"invoice":    result.Invoice,
		"payments":   result.Payments,
		"creditUsed": result.CreditUsed,
	})
}

// ListPayments handles GET /invoices/:id/payments
func (h *BillingHandler) ListPayments(c *gin.Context) {
	invoiceID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      payments,
		TotalCount: len(payments),
	})
}

// CancelPayment handles PATCH /payments/:id/cancel
func (h *BillingHandler) CancelPayment(c *gin.Context) {
	paymentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, inv, err := h.service.CancelPayment(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"payment": p,
		"invoice": inv,
	})
}

// CancelInvoice handles PATCH /invoices/:id/cancel
func (h *BillingHandler) CancelInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.CancelInvoice(c.Request.Context(), invoiceID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}
