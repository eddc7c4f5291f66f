package dto

import (
	"github.com/shopspring/decimal"

	"vetpos/internal/core/types"
)

// SaleItemRequest is one requested checkout line. ProductID empty means a
// free-text charge that must bring its own price.
type SaleItemRequest struct {
	ProductID   string          `json:"productId" binding:"omitempty,uuid"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	WholeUnit   bool            `json:"wholeUnit"`
	UnitPrice   *types.Money    `json:"unitPrice"`
	Discount    *types.Money    `json:"discount"`
}

// CreateSaleRequest for POST /sales.
type CreateSaleRequest struct {
	Items []SaleItemRequest `json:"items" binding:"required,min=1"`

	OwnerID       string `json:"ownerId" binding:"omitempty,uuid"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	PatientID     string `json:"patientId" binding:"omitempty,uuid"`

	Discount *types.Money `json:"discount"`

	PaidUSD      *types.Money `json:"paidUSD"`
	PaidBs       *types.Money `json:"paidBs"`
	CreditUsed   *types.Money `json:"creditUsed"`
	ExchangeRate *types.Money `json:"exchangeRate"`
	MethodID     string       `json:"paymentMethodId" binding:"omitempty,uuid"`
	Reference    string       `json:"paymentReference"`

	Notes string `json:"notes"`
}

// CancelSaleRequest for PATCH /sales/:id/cancel.
type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SaleListQuery for GET /sales.
type SaleListQuery struct {
	PaginationRequest
	OwnerID  string `form:"ownerId"`
	Status   string `form:"status"`
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
}

// SummaryQuery for GET /sales/summary. An empty range means today.
type SummaryQuery struct {
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
}
