package billing

import (
	"context"
	"fmt"
	"time"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/tx"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/pkg/logger"
	"vetpos/pkg/numerator"
)

// Auditor records cancellation events. Implementations live in the
// infrastructure layer; a nil auditor disables the trail.
type Auditor interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, metadata map[string]any) error
}

// Service provides invoice/payment reconciliation.
type Service struct {
	invoices  InvoiceRepository
	payments  PaymentRepository
	owners    owner.Repository
	txManager tx.Manager
	numbers   numerator.Generator
	audit     Auditor
}

// NewService creates a new billing service.
func NewService(
	invoices InvoiceRepository,
	payments PaymentRepository,
	owners owner.Repository,
	txManager tx.Manager,
	numbers numerator.Generator,
	audit Auditor,
) *Service {
	return &Service{
		invoices:  invoices,
		payments:  payments,
		owners:    owners,
		txManager: txManager,
		numbers:   numbers,
		audit:     audit,
	}
}

// CreateInvoice validates, numbers and persists an invoice with its lines.
// Runs inside the caller's transaction when one is active.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if err := inv.Validate(ctx); err != nil {
		return err
	}

	if inv.Number == "" {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("INV"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate invoice number: %w", err)
		}
		inv.Number = number
	}
	inv.CreatedBy = appctx.GetUserID(ctx)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.invoices.SaveLines(ctx, inv.ID, inv.Lines); err != nil {
			return fmt.Errorf("save invoice lines: %w", err)
		}
		return nil
	})
}

// GetInvoice retrieves an invoice with lines.
func (s *Service) GetInvoice(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	lines, err := s.invoices.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice lines: %w", err)
	}
	inv.Lines = lines
	return inv, nil
}

// Recalculate re-derives the invoice's paid amounts and status from the
// full set of active payments. Idempotent; the sole writer of those fields.
// Must run after every payment creation or cancellation.
func (s *Service) Recalculate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		payments, err := s.payments.ListByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}

		paidUSD := types.Zero()
		paidBs := types.Zero()
		var rate *types.Money
		for _, p := range payments {
			if p.Status != PaymentActive {
				continue
			}
			switch p.Currency {
			case CurrencyBs:
				paidBs = paidBs.Add(p.Amount)
			default:
				paidUSD = paidUSD.Add(p.Amount)
			}
			if p.ExchangeRate.IsPositive() {
				r := p.ExchangeRate
				rate = &r
			}
		}

		// Cancelled invoices keep their terminal status; amounts still reflect
		// the active payment set (normally empty after cancellation).
		terminal := inv.Status == StatusCancelled
		inv.applyPaid(paidUSD, paidBs, rate)
		if terminal {
			inv.Status = StatusCancelled
		}
		inv.UpdatedAt = time.Now().UTC()

		if err := s.invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreatePaymentInput applies money and/or store credit to an invoice.
type CreatePaymentInput struct {
	InvoiceID    id.ID
	Amount       types.Money
	Currency     string
	ExchangeRate types.Money
	MethodID     *id.ID
	Reference    string
	CreditAmount types.Money
}

// CreatePaymentResult bundles the created ledger entries and the
// recalculated invoice.
type CreatePaymentResult struct {
	Payments   []*Payment
	Invoice    *Invoice
	CreditUsed types.Money
}

// CreatePayment appends ledger entries for the requested funding sources
// and folds them into the invoice. One transaction.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if !in.Amount.IsPositive() && !in.CreditAmount.IsPositive() {
		return nil, apperror.NewValidation("payment requires a cash amount or a credit amount")
	}
	if in.Amount.IsPositive() && in.MethodID == nil {
		return nil, apperror.NewValidation("cash payment requires a payment method").
			WithDetail("field", "paymentMethod")
	}
	if in.Currency == "" {
		in.Currency = CurrencyUSD
	}
	if in.Currency != CurrencyUSD && in.Currency != CurrencyBs {
		return nil, apperror.NewValidation("unsupported currency").
			WithDetail("currency", in.Currency)
	}
	if in.Currency == CurrencyBs && !in.ExchangeRate.IsPositive() {
		return nil, apperror.NewValidation("local-currency payment requires an exchange rate")
	}

	result := &CreatePaymentResult{CreditUsed: types.Zero()}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.IsClosed() {
			return apperror.NewInvalidState(fmt.Sprintf("invoice is already %s", inv.Status)).
				WithDetail("invoice_id", inv.ID.String())
		}

		clinicID := appctx.GetClinicID(ctx)
		actor := appctx.GetUserID(ctx)

		if in.CreditAmount.IsPositive() {
			if inv.OwnerID == nil {
				return apperror.NewValidation("credit payment requires an invoice customer")
			}
			if err := s.spendCredit(ctx, *inv.OwnerID, in.CreditAmount); err != nil {
				return err
			}
			credit := NewPayment(clinicID, inv.ID, in.CreditAmount, CurrencyUSD, types.Zero())
			credit.IsCredit = true
			credit.CreatedBy = actor
			if err := s.payments.Create(ctx, credit); err != nil {
				return fmt.Errorf("create credit payment: %w", err)
			}
			result.Payments = append(result.Payments, credit)
			result.CreditUsed = in.CreditAmount
		}

		if in.Amount.IsPositive() {
			cash := NewPayment(clinicID, inv.ID, in.Amount, in.Currency, in.ExchangeRate)
			cash.MethodID = in.MethodID
			cash.Reference = in.Reference
			cash.CreatedBy = actor
			if err := s.payments.Create(ctx, cash); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
			result.Payments = append(result.Payments, cash)
		}

		result.Invoice, err = s.Recalculate(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment created",
		"invoice_id", in.InvoiceID,
		"entries", len(result.Payments),
		"credit_used", result.CreditUsed,
	)
	return result, nil
}

// SettleInput funds an invoice from up to three sources at checkout:
// store credit, USD cash and local-currency cash.
type SettleInput struct {
	InvoiceID    id.ID
	AmountUSD    types.Money
	AmountBs     types.Money
	CreditAmount types.Money
	ExchangeRate types.Money
	MethodID     *id.ID
	Reference    string
}

// Settle creates one ledger entry per funding source actually used and
// folds them into the invoice. Unlike CreatePayment it tolerates a zero
// total (unpaid checkout) and does not demand a payment method for cash.
// Runs inside the caller's transaction when one is active.
func (s *Service) Settle(ctx context.Context, in SettleInput) (*CreatePaymentResult, error) {
	if in.AmountUSD.IsNegative() || in.AmountBs.IsNegative() || in.CreditAmount.IsNegative() {
		return nil, apperror.NewValidation("payment amounts cannot be negative")
	}
	if in.AmountBs.IsPositive() && !in.ExchangeRate.IsPositive() {
		return nil, apperror.NewValidation("local-currency payment requires an exchange rate")
	}

	result := &CreatePaymentResult{CreditUsed: types.Zero()}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}

		clinicID := appctx.GetClinicID(ctx)
		actor := appctx.GetUserID(ctx)

		if in.CreditAmount.IsPositive() {
			if inv.OwnerID == nil {
				return apperror.NewValidation("credit payment requires an invoice customer")
			}
			if err := s.spendCredit(ctx, *inv.OwnerID, in.CreditAmount); err != nil {
				return err
			}
			credit := NewPayment(clinicID, inv.ID, in.CreditAmount, CurrencyUSD, types.Zero())
			credit.IsCredit = true
			credit.CreatedBy = actor
			if err := s.payments.Create(ctx, credit); err != nil {
				return fmt.Errorf("create credit payment: %w", err)
			}
			result.Payments = append(result.Payments, credit)
			result.CreditUsed = in.CreditAmount
		}

		if in.AmountUSD.IsPositive() {
			p := NewPayment(clinicID, inv.ID, in.AmountUSD, CurrencyUSD, in.ExchangeRate)
			p.MethodID = in.MethodID
			p.Reference = in.Reference
			p.CreatedBy = actor
			if err := s.payments.Create(ctx, p); err != nil {
				return fmt.Errorf("create usd payment: %w", err)
			}
			result.Payments = append(result.Payments, p)
		}

		if in.AmountBs.IsPositive() {
			p := NewPayment(clinicID, inv.ID, in.AmountBs, CurrencyBs, in.ExchangeRate)
			p.MethodID = in.MethodID
			p.Reference = in.Reference
			p.CreatedBy = actor
			if err := s.payments.Create(ctx, p); err != nil {
				return fmt.Errorf("create local payment: %w", err)
			}
			result.Payments = append(result.Payments, p)
		}

		result.Invoice, err = s.Recalculate(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelPayment flips one ledger entry to cancelled, restores credit when
// the entry consumed it, and recalculates the invoice. One transaction.
func (s *Service) CancelPayment(ctx context.Context, paymentID id.ID, reason string) (*Payment, *Invoice, error) {
	var (
		p   *Payment
		inv *Invoice
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == PaymentCancelled {
			return apperror.NewInvalidState("payment is already cancelled").
				WithDetail("payment_id", paymentID.String())
		}

		// Lock the invoice before mutating the ledger.
		inv, err = s.invoices.GetForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}

		if p.IsCredit {
			if inv.OwnerID == nil {
				return apperror.NewInternal(fmt.Errorf("credit payment %s has no invoice owner", p.ID))
			}
			if err := s.owners.AdjustCredit(ctx, *inv.OwnerID, p.Amount); err != nil {
				return fmt.Errorf("restore credit: %w", err)
			}
		}

		p.Cancel(appctx.GetUserID(ctx), reason, time.Now().UTC())
		if err := s.payments.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		inv, err = s.Recalculate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}

		if s.audit != nil {
			if err := s.audit.Record(ctx, "payment", p.ID, "cancel", map[string]any{
				"reason":     reason,
				"invoice_id": p.InvoiceID.String(),
				"is_credit":  p.IsCredit,
			}); err != nil {
				return fmt.Errorf("audit payment cancellation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "payment cancelled", "payment_id", paymentID, "reason", reason)
	return p, inv, nil
}

// CancelInvoice cancels every active payment (restoring credit entries) and
// marks the invoice cancelled. Runs inside the caller's transaction; used by
// the sale cancellation flow.
func (s *Service) CancelInvoice(ctx context.Context, invoiceID id.ID, reason string) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusCancelled {
			return apperror.NewInvalidState("invoice is already cancelled").
				WithDetail("invoice_id", invoiceID.String())
		}

		payments, err := s.payments.ListByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}

		now := time.Now().UTC()
		actor := appctx.GetUserID(ctx)
		for _, p := range payments {
			if p.Status != PaymentActive {
				continue
			}
			if p.IsCredit && inv.OwnerID != nil {
				if err := s.owners.AdjustCredit(ctx, *inv.OwnerID, p.Amount); err != nil {
					return fmt.Errorf("restore credit: %w", err)
				}
			}
			p.Cancel(actor, reason, now)
			if err := s.payments.Update(ctx, p); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
		}

		inv.Status = StatusCancelled
		inv.UpdatedAt = now
		if err := s.invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		// Recalculate zeroes the paid amounts and preserves the terminal status.
		inv, err = s.Recalculate(ctx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListPayments returns the ledger for one invoice.
func (s *Service) ListPayments(ctx context.Context, invoiceID id.ID) ([]*Payment, error) {
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// spendCredit checks and atomically decrements the owner's balance.
func (s *Service) spendCredit(ctx context.Context, ownerID id.ID, amount types.Money) error {
	o, err := s.owners.GetForUpdate(ctx, ownerID)
	if err != nil {
		return err
	}
	if o.CreditBalance.LessThan(amount) {
		return apperror.NewInsufficientCredit(ownerID.String(),
			amount.String(), o.CreditBalance.String())
	}
	return s.owners.AdjustCredit(ctx, ownerID, amount.Neg())
}
