package billing_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"vetpos/internal/core/apperror"
	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/billing"
	"vetpos/internal/infrastructure/storage/postgres"
)

const paymentsTable = "pay_payments"

// PaymentRepo implements billing.PaymentRepository.
type PaymentRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[billing.Payment](),
	}
}

func (r *PaymentRepo) Create(ctx context.Context, p *billing.Payment) error {
	p.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(paymentsTable).SetMap(postgres.StructToMap(p))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert payment: %w", err))
	}
	return nil
}

// Update only ever flips status and stamps cancellation metadata. Amounts
// are immutable once written, so the ledger stays append-only.
func (r *PaymentRepo) Update(ctx context.Context, p *billing.Payment) error {
	q := builder().Update(paymentsTable).
		Set("status", p.Status).
		Set("cancelled_at", p.CancelledAt).
		Set("cancelled_by", p.CancelledBy).
		Set("cancelled_reason", p.CancelledReason).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update payment: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("payment", p.ID.String())
	}
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*billing.Payment, error) {
	q := builder().Select(r.columns...).
		From(paymentsTable).
		Where(squirrel.Eq{"id": paymentID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p billing.Payment
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("payment", paymentID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get payment: %w", err))
	}
	return &p, nil
}

func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*billing.Payment, error) {
	q := builder().Select(r.columns...).
		From(paymentsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID, "clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("created_at ASC")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var payments []*billing.Payment
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &payments, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list payments: %w", err))
	}
	return payments, nil
}
