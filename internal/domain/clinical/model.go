// Package clinical provides stock consumption for clinical events:
// treatments, vaccinations, deworming and bundled services that draw
// inventory outside a point-of-sale checkout.
package clinical

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
)

// EventType classifies the clinical record.
type EventType string

const (
	EventTreatment   EventType = "treatment"
	EventVaccination EventType = "vaccination"
	EventDeworming   EventType = "deworming"
	EventGrooming    EventType = "grooming"
	EventService     EventType = "service"
)

// Event is one clinical record that consumed inventory. The event and its
// stock movement are created together or not at all.
type Event struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	Type EventType `db:"type" json:"type"`

	PatientID *id.ID `db:"patient_id" json:"patientId,omitempty"`
	OwnerID   *id.ID `db:"owner_id" json:"ownerId,omitempty"`

	ProductID id.ID           `db:"product_id" json:"productId"`
	Qty       decimal.Decimal `db:"qty" json:"qty"`
	WholeUnit bool            `db:"whole_unit" json:"isWholeUnit"`

	// Charge is the billed amount, frozen at event time.
	Charge types.Money `db:"charge" json:"charge"`

	// InvoiceID links the pending invoice created for the charge.
	InvoiceID *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`

	Notes       string `db:"notes" json:"notes,omitempty"`
	PerformedBy string `db:"performed_by" json:"performedBy,omitempty"`

	Date      time.Time `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Validate checks entity invariants.
func (e *Event) Validate(ctx context.Context) error {
	switch e.Type {
	case EventTreatment, EventVaccination, EventDeworming, EventGrooming, EventService:
	default:
		return apperror.NewValidation("unknown clinical event type").
			WithDetail("type", string(e.Type))
	}
	if id.IsNil(e.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !e.Qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "qty")
	}
	if e.Charge.IsNegative() {
		return apperror.NewValidation("charge cannot be negative").
			WithDetail("field", "charge")
	}
	return nil
}
