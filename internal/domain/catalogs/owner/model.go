// Package owner provides the pet-owner (customer) catalog.
// Owners carry the store-credit balance the sale and payment flows draw on.
package owner

import (
	"context"
	"time"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
)

// Owner represents a customer of the practice.
type Owner struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`
	Email string `db:"email" json:"email,omitempty"`

	// CreditBalance is prepaid store credit, in USD. Mutated only through
	// atomic increments inside the transaction that caused the change.
	CreditBalance types.Money `db:"credit_balance" json:"creditBalance"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates an Owner with required fields.
func New(clinicID, name string) *Owner {
	now := time.Now().UTC()
	return &Owner{
		ID:            id.New(),
		ClinicID:      clinicID,
		Name:          name,
		CreditBalance: types.Zero(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks entity invariants.
func (o *Owner) Validate(ctx context.Context) error {
	if o.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if o.CreditBalance.IsNegative() {
		return apperror.NewValidation("credit balance cannot be negative").
			WithDetail("field", "creditBalance")
	}
	return nil
}
