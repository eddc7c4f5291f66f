package dto

import (
	"vetpos/internal/core/types"
)

// CreatePaymentRequest for POST /payments.
// Applies cash and/or store credit to an open invoice.
type CreatePaymentRequest struct {
	InvoiceID    string       `json:"invoiceId" binding:"required,uuid"`
	Amount       *types.Money `json:"amount"`
	Currency     string       `json:"currency"`
	ExchangeRate *types.Money `json:"exchangeRate"`
	MethodID     string       `json:"paymentMethodId" binding:"omitempty,uuid"`
	Reference    string       `json:"reference"`
	CreditAmount *types.Money `json:"creditAmount"`
}

// CancelPaymentRequest for PATCH /payments/:id/cancel.
type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// InvoiceListQuery for GET /invoices.
type InvoiceListQuery struct {
	PaginationRequest
	OwnerID  string `form:"ownerId"`
	Status   string `form:"status"`
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
}
