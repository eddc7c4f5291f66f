package dto

import (
	"github.com/shopspring/decimal"

	"vetpos/internal/core/types"
)

// InitializeStockRequest for POST /inventory/initialize.
type InitializeStockRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Units     int64           `json:"units" binding:"min=0"`
	Doses     decimal.Decimal `json:"doses"`
	Note      string          `json:"note"`
}

// AdjustStockRequest for POST /inventory/adjust. Direction tells whether
// the quantity enters or leaves the ledger.
type AdjustStockRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	WholeUnit bool            `json:"wholeUnit"`
	Inbound   bool            `json:"inbound"`
	Reason    string          `json:"reason" binding:"required"`
	Note      string          `json:"note"`
}

// ConsumeStockRequest for POST /inventory/consume. Outbound only; reason
// defaults to manual-adjustment when omitted.
type ConsumeStockRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	WholeUnit bool            `json:"wholeUnit"`
	Reason    string          `json:"reason"`
	Note      string          `json:"note"`
}

// StockLevelResponse is one level with dosage context.
type StockLevelResponse struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName,omitempty"`
	Units       int64       `json:"stockUnits"`
	Doses       types.Doses `json:"stockDoses"`
	TotalDoses  types.Doses `json:"totalDoses"`
}

// MovementListQuery for GET /inventory/movements.
type MovementListQuery struct {
	PaginationRequest
	ProductID string `form:"productId"`
	Reason    string `form:"reason"`
	RefType   string `form:"refType"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
}
