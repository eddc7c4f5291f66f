// Package sale provides the Sale document: one point-of-sale checkout
// that consumes stock, freezes prices and settles through the billing
// aggregate.
package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
)

// Status of a sale.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Line is one sold position. Prices are frozen at sale time and never
// re-read from the catalog.
type Line struct {
	LineNo int `db:"line_no" json:"lineNo"`

	// ProductID is nil for free-text lines (services, one-off charges)
	// which carry no stock.
	ProductID   *id.ID `db:"product_id" json:"productId,omitempty"`
	Description string `db:"description" json:"description"`

	Qty       decimal.Decimal `db:"qty" json:"qty"`
	WholeUnit bool            `db:"whole_unit" json:"isWholeUnit"`

	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Discount  types.Money `db:"discount" json:"discount"`
	Total     types.Money `db:"total" json:"total"`
}

// Sale is the checkout document. Monetary fields are snapshots taken at
// creation; the linked invoice carries the live payment state.
type Sale struct {
	ID       id.ID  `db:"id" json:"id"`
	Number   string `db:"number" json:"number"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	// Customer: either a registered owner or a walk-in name/phone pair.
	OwnerID       *id.ID `db:"owner_id" json:"ownerId,omitempty"`
	CustomerName  string `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone string `db:"customer_phone" json:"customerPhone,omitempty"`
	PatientID     *id.ID `db:"patient_id" json:"patientId,omitempty"`

	Lines []Line `db:"-" json:"lines"`

	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Discount types.Money `db:"discount" json:"discount"`
	Total    types.Money `db:"total" json:"total"`

	PaidUSD      types.Money `db:"paid_usd" json:"amountPaidUSD"`
	PaidBs       types.Money `db:"paid_bs" json:"amountPaidBs"`
	CreditUsed   types.Money `db:"credit_used" json:"creditUsed"`
	ExchangeRate types.Money `db:"exchange_rate" json:"exchangeRate"`
	ChangeAmount types.Money `db:"change_amount" json:"changeAmount"`

	Status Status `db:"status" json:"status"`

	InvoiceID *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`

	Notes string `db:"notes" json:"notes,omitempty"`

	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy     string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledReason string     `db:"cancelled_reason" json:"cancelledReason,omitempty"`

	Date      time.Time `db:"date" json:"date"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates an empty pending sale.
func New(clinicID string) *Sale {
	now := time.Now().UTC()
	return &Sale{
		ID:           id.New(),
		ClinicID:     clinicID,
		Lines:        make([]Line, 0),
		Subtotal:     types.Zero(),
		Discount:     types.Zero(),
		Total:        types.Zero(),
		PaidUSD:      types.Zero(),
		PaidBs:       types.Zero(),
		CreditUsed:   types.Zero(),
		ExchangeRate: types.Zero(),
		ChangeAmount: types.Zero(),
		Status:       StatusPending,
		Date:         now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddLine appends a priced line and recalculates totals.
// Line total = qty * unitPrice - discount, floored at zero.
func (s *Sale) AddLine(productID *id.ID, description string, qty decimal.Decimal, wholeUnit bool, unitPrice, discount types.Money) {
	total := qty.Mul(unitPrice).Sub(discount)
	if total.IsNegative() {
		total = types.Zero()
	}

	s.Lines = append(s.Lines, Line{
		LineNo:      len(s.Lines) + 1,
		ProductID:   productID,
		Description: description,
		Qty:         qty,
		WholeUnit:   wholeUnit,
		UnitPrice:   unitPrice,
		Discount:    discount,
		Total:       total,
	})
	s.recalculateTotals()
}

// recalculateTotals re-derives subtotal and total from the lines and the
// sale-level discount.
func (s *Sale) recalculateTotals() {
	subtotal := types.Zero()
	for _, line := range s.Lines {
		subtotal = subtotal.Add(line.Total)
	}
	s.Subtotal = subtotal

	total := subtotal.Sub(s.Discount)
	if total.IsNegative() {
		total = types.Zero()
	}
	s.Total = total
}

// Validate checks entity invariants.
func (s *Sale) Validate(ctx context.Context) error {
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	if s.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	for i, line := range s.Lines {
		if line.ProductID == nil && line.Description == "" {
			return apperror.NewValidation("item requires a product or a description").
				WithDetail("lineNo", i+1)
		}
		if !line.Qty.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() || line.Discount.IsNegative() {
			return apperror.NewValidation("price and discount cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// TotalPaid returns the USD value of every funding source at the sale's
// own rate snapshot.
func (s *Sale) TotalPaid() types.Money {
	paid := s.PaidUSD.Add(s.CreditUsed)
	if s.ExchangeRate.IsPositive() {
		paid = paid.Add(s.PaidBs.Div(s.ExchangeRate))
	}
	return paid
}

// Cancel stamps cancellation metadata. Stock and billing compensation is
// the service's job.
func (s *Sale) Cancel(actor, reason string, at time.Time) {
	s.Status = StatusCancelled
	s.CancelledAt = &at
	s.CancelledBy = actor
	s.CancelledReason = reason
	s.UpdatedAt = at
}
