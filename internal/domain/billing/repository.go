package billing

import (
	"context"
	"time"

	"vetpos/internal/core/id"
)

// InvoiceRepository defines persistence for the billing aggregate.
// Implementations scope every query to the clinic in context.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// GetForUpdate locks the invoice row, serializing concurrent payment
	// application and recalculation.
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	SaveLines(ctx context.Context, invoiceID id.ID, lines []InvoiceLine) error
	GetLines(ctx context.Context, invoiceID id.ID) ([]InvoiceLine, error)

	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
}

// PaymentRepository defines persistence for the payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)

	// ListByInvoice returns every payment for the invoice, oldest first.
	// Recalculation filters to active entries itself.
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error)
}

// InvoiceFilter for invoice listing.
type InvoiceFilter struct {
	OwnerID  *id.ID
	Status   *PaymentStatus
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
