// Package product provides the Product catalog.
// Products are catalog entries owned by a clinic: medications, vaccines,
// food and other sellable inventory.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/dosage"
)

// Product represents a sellable catalog item.
// Name is unique per clinic. Price/metadata edits are allowed after creation;
// historical movements keep their own frozen quantities and prices.
type Product struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	Name string `db:"name" json:"name"`

	// UnitPrice is the sale price per whole unit.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// DosePrice is the optional sale price per dose.
	DosePrice *types.Money `db:"dose_price" json:"dosePrice,omitempty"`

	// UnitLabel names the physical unit (vial, bag, box).
	UnitLabel string `db:"unit_label" json:"unitLabel"`

	// DoseLabel names the fractional sub-unit (injection, ml, scoop).
	DoseLabel string `db:"dose_label" json:"doseLabel"`

	// DosesPerUnit is how many doses one whole unit opens into (>= 1).
	DosesPerUnit int64 `db:"doses_per_unit" json:"dosesPerUnit"`

	// Divisible allows selling fractional doses.
	Divisible bool `db:"divisible" json:"divisible"`

	// MinStockDoses is the low-stock alert threshold, in doses.
	MinStockDoses types.Doses `db:"min_stock_doses" json:"minStockDoses"`

	Active bool `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a Product with required fields.
func New(clinicID, name string, unitPrice types.Money, dosesPerUnit int64) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:           id.New(),
		ClinicID:     clinicID,
		Name:         name,
		UnitPrice:    unitPrice,
		DosesPerUnit: dosesPerUnit,
		Divisible:    dosesPerUnit > 1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks entity invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if p.DosePrice != nil && p.DosePrice.IsNegative() {
		return apperror.NewValidation("dose price cannot be negative").
			WithDetail("field", "dosePrice")
	}
	if p.DosesPerUnit < 1 {
		return apperror.NewValidation("doses per unit must be at least 1").
			WithDetail("field", "dosesPerUnit")
	}
	if p.Divisible && p.DosesPerUnit < 1 {
		return apperror.NewValidation("divisible product requires doses per unit").
			WithDetail("field", "dosesPerUnit")
	}
	if p.MinStockDoses.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStockDoses")
	}
	return nil
}

// DosageProfile returns the arithmetic profile for the conversion engine.
func (p *Product) DosageProfile() dosage.Profile {
	return dosage.Profile{
		ProductID:    p.ID.String(),
		DosesPerUnit: p.DosesPerUnit,
		Divisible:    p.Divisible,
	}
}

// PriceFor returns the effective price for one whole unit or one dose.
// A dose sale falls back to unit price split per dose when no dose price
// is configured.
func (p *Product) PriceFor(wholeUnit bool) types.Money {
	if wholeUnit {
		return p.UnitPrice
	}
	if p.DosePrice != nil {
		return *p.DosePrice
	}
	return p.UnitPrice.Div(decimal.NewFromInt(p.DosesPerUnit))
}
