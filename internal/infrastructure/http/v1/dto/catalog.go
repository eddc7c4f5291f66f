package dto

import (
	"vetpos/internal/core/types"
)

// --- Products ---

// CreateProductRequest for POST /catalog/products.
type CreateProductRequest struct {
	Name          string       `json:"name" binding:"required"`
	UnitPrice     types.Money  `json:"unitPrice" binding:"required"`
	DosePrice     *types.Money `json:"dosePrice"`
	UnitLabel     string       `json:"unitLabel"`
	DoseLabel     string       `json:"doseLabel"`
	DosesPerUnit  int64        `json:"dosesPerUnit" binding:"required,min=1"`
	Divisible     *bool        `json:"divisible"`
	MinStockDoses *types.Doses `json:"minStockDoses"`
}

// UpdateProductRequest for PUT /catalog/products/:id.
// Nil fields keep their current value.
type UpdateProductRequest struct {
	Name          *string      `json:"name"`
	UnitPrice     *types.Money `json:"unitPrice"`
	DosePrice     *types.Money `json:"dosePrice"`
	UnitLabel     *string      `json:"unitLabel"`
	DoseLabel     *string      `json:"doseLabel"`
	MinStockDoses *types.Doses `json:"minStockDoses"`
	Active        *bool        `json:"active"`
}

// ProductListQuery for GET /catalog/products.
type ProductListQuery struct {
	PaginationRequest
	Search     string `form:"search"`
	ActiveOnly bool   `form:"activeOnly"`
}

// --- Owners ---

// CreateOwnerRequest for POST /catalog/owners.
type CreateOwnerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

// UpdateOwnerRequest for PUT /catalog/owners/:id.
type UpdateOwnerRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// AddCreditRequest for POST /catalog/owners/:id/credit.
type AddCreditRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
	Note   string      `json:"note"`
}

// OwnerListQuery for GET /catalog/owners.
type OwnerListQuery struct {
	PaginationRequest
	Search string `form:"search"`
}
