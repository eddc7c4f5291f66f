// Package billing provides the Invoice aggregate and the append-only
// Payment ledger. Invoice monetary state is derived: Recalculate is the
// single authority for amountPaid and paymentStatus.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
)

// Currency codes accepted by the payment ledger.
const (
	CurrencyUSD = "USD"
	CurrencyBs  = "BS" // local currency (bolívar)
)

// PaymentStatus of an invoice.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPartial   PaymentStatus = "partial"
	StatusPaid      PaymentStatus = "paid"
	StatusCancelled PaymentStatus = "cancelled"
)

// LineType tags the origin of an invoice line.
type LineType string

const (
	LineSale         LineType = "sale"
	LineConsultation LineType = "consultation"
	LineTreatment    LineType = "treatment"
	LineVaccination  LineType = "vaccination"
	LineDeworming    LineType = "deworming"
	LineGrooming     LineType = "grooming"
	LineService      LineType = "service"
)

// InvoiceLine is one billed position.
type InvoiceLine struct {
	LineNo      int         `db:"line_no" json:"lineNo"`
	Type        LineType    `db:"type" json:"type"`
	RefType     string      `db:"ref_type" json:"refType,omitempty"`
	RefID       *id.ID      `db:"ref_id" json:"refId,omitempty"`
	Description string      `db:"description" json:"description"`
	UnitCost    types.Money `db:"unit_cost" json:"unitCost"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
}

// Invoice is the billing aggregate for one billable event or checkout.
// AmountPaidUSD/AmountPaidBs/AmountPaid/Status are derived fields,
// written only by Service.Recalculate.
type Invoice struct {
	ID       id.ID  `db:"id" json:"id"`
	Number   string `db:"number" json:"number"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	OwnerID   *id.ID `db:"owner_id" json:"ownerId,omitempty"`
	PatientID *id.ID `db:"patient_id" json:"patientId,omitempty"`

	Lines []InvoiceLine `db:"-" json:"lines"`

	Currency     string       `db:"currency" json:"currency"`
	ExchangeRate *types.Money `db:"exchange_rate" json:"exchangeRate,omitempty"`

	Total types.Money `db:"total" json:"total"`

	AmountPaidUSD types.Money   `db:"amount_paid_usd" json:"amountPaidUSD"`
	AmountPaidBs  types.Money   `db:"amount_paid_bs" json:"amountPaidBs"`
	AmountPaid    types.Money   `db:"amount_paid" json:"amountPaid"`
	Status        PaymentStatus `db:"status" json:"paymentStatus"`

	MethodID  *id.ID `db:"method_id" json:"paymentMethodId,omitempty"`
	Reference string `db:"reference" json:"paymentReference,omitempty"`

	Date      time.Time `db:"date" json:"date"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewInvoice creates a pending invoice.
func NewInvoice(clinicID string, total types.Money) *Invoice {
	now := time.Now().UTC()
	return &Invoice{
		ID:            id.New(),
		ClinicID:      clinicID,
		Currency:      CurrencyUSD,
		Total:         total,
		AmountPaidUSD: types.Zero(),
		AmountPaidBs:  types.Zero(),
		AmountPaid:    types.Zero(),
		Status:        StatusPending,
		Date:          now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks entity invariants.
func (inv *Invoice) Validate(ctx context.Context) error {
	if inv.Total.IsNegative() {
		return apperror.NewValidation("total cannot be negative").
			WithDetail("field", "total")
	}
	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range inv.Lines {
		if line.Description == "" {
			return apperror.NewValidation("line description is required").
				WithDetail("lineNo", i+1)
		}
		if line.Qty.IsNegative() || line.UnitCost.IsNegative() {
			return apperror.NewValidation("line quantity and cost cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// IsClosed reports whether the invoice accepts no further payments.
func (inv *Invoice) IsClosed() bool {
	return inv.Status == StatusPaid || inv.Status == StatusCancelled
}

// applyPaid derives AmountPaid and Status from the summed paid amounts.
// Called only from Service.Recalculate.
func (inv *Invoice) applyPaid(paidUSD, paidBs types.Money, rate *types.Money) {
	inv.AmountPaidUSD = paidUSD
	inv.AmountPaidBs = paidBs
	if rate != nil && rate.IsPositive() {
		inv.ExchangeRate = rate
	}

	paid := paidUSD
	if inv.ExchangeRate != nil && inv.ExchangeRate.IsPositive() {
		paid = paid.Add(paidBs.Div(*inv.ExchangeRate))
	}
	if paid.IsNegative() {
		paid = types.Zero()
	}
	inv.AmountPaid = paid

	switch {
	case paid.GreaterThanOrEqual(inv.Total.Sub(types.PaymentTolerance)):
		inv.Status = StatusPaid
	case paid.IsPositive():
		inv.Status = StatusPartial
	default:
		inv.Status = StatusPending
	}
}

// PaymentState of a ledger entry.
type PaymentState string

const (
	PaymentActive    PaymentState = "active"
	PaymentCancelled PaymentState = "cancelled"
)

// Payment is one append-only ledger entry against an invoice.
// Cancellation flips Status and stamps metadata; rows are never deleted.
type Payment struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	Amount       types.Money `db:"amount" json:"amount"`
	Currency     string      `db:"currency" json:"currency"`
	ExchangeRate types.Money `db:"exchange_rate" json:"exchangeRate"`

	// AmountUSD is the USD equivalent at the payment's own rate snapshot.
	AmountUSD types.Money `db:"amount_usd" json:"amountUSD"`

	MethodID  *id.ID `db:"method_id" json:"paymentMethodId,omitempty"`
	Reference string `db:"reference" json:"reference,omitempty"`

	Status PaymentState `db:"status" json:"status"`

	// IsCredit marks store-credit consumption rather than new money.
	IsCredit bool `db:"is_credit" json:"isCredit"`

	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy     string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledReason string     `db:"cancelled_reason" json:"cancelledReason,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewPayment creates an active payment with its USD equivalent derived
// from the rate snapshot.
func NewPayment(clinicID string, invoiceID id.ID, amount types.Money, currency string, rate types.Money) *Payment {
	now := time.Now().UTC()
	p := &Payment{
		ID:           id.New(),
		ClinicID:     clinicID,
		InvoiceID:    invoiceID,
		Amount:       amount,
		Currency:     currency,
		ExchangeRate: rate,
		Status:       PaymentActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.AmountUSD = p.usdEquivalent()
	return p
}

func (p *Payment) usdEquivalent() types.Money {
	if p.Currency == CurrencyBs {
		if p.ExchangeRate.IsPositive() {
			return p.Amount.Div(p.ExchangeRate)
		}
		return types.Zero()
	}
	return p.Amount
}

// Cancel stamps cancellation metadata. Recalculation is the caller's job.
func (p *Payment) Cancel(actor, reason string, at time.Time) {
	p.Status = PaymentCancelled
	p.CancelledAt = &at
	p.CancelledBy = actor
	p.CancelledReason = reason
	p.UpdatedAt = at
}
