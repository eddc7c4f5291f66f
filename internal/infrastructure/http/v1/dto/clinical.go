package dto

import (
	"github.com/shopspring/decimal"

	"vetpos/internal/core/types"
)

// ClinicalConsumeRequest for POST /clinical/events.
// Records a clinical act that consumes stock and opens a pending invoice.
type ClinicalConsumeRequest struct {
	Type      string          `json:"type" binding:"required"`
	ProductID string          `json:"productId" binding:"required,uuid"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	WholeUnit bool            `json:"wholeUnit"`

	PatientID string `json:"patientId" binding:"omitempty,uuid"`
	OwnerID   string `json:"ownerId" binding:"omitempty,uuid"`

	Charge *types.Money `json:"charge"`
	Notes  string       `json:"notes"`
}

// ClinicalListQuery for GET /clinical/events.
type ClinicalListQuery struct {
	PaginationRequest
	Type      string `form:"type"`
	PatientID string `form:"patientId"`
	ProductID string `form:"productId"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
}
