// Package billing_repo provides PostgreSQL implementations for the
// invoice and payment repositories. Every query is scoped to the clinic
// in context.
package billing_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/billing"
	"vetpos/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceLinesTable = "doc_invoice_lines"
)

// InvoiceRepo implements billing.InvoiceRepository.
type InvoiceRepo struct {
	txManager *postgres.TxManager
	columns   []string
	lineCols  []string
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[billing.Invoice](),
		lineCols:  postgres.ExtractDBColumns[billing.InvoiceLine](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	inv.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(invoicesTable).SetMap(postgres.StructToMap(inv))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert invoice: %w", err))
	}
	return nil
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *billing.Invoice) error {
	data := postgres.StructToMap(inv)
	delete(data, "id")
	delete(data, "clinic_id")
	delete(data, "created_at")

	q := builder().Update(invoicesTable).
		SetMap(data).
		Where(squirrel.Eq{"id": inv.ID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update invoice: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", inv.ID.String())
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*billing.Invoice, error) {
	return r.get(ctx, invoiceID, false)
}

// GetForUpdate locks the invoice row so payment application and
// recalculation serialize per invoice.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*billing.Invoice, error) {
	return r.get(ctx, invoiceID, true)
}

func (r *InvoiceRepo) get(ctx context.Context, invoiceID id.ID, forUpdate bool) (*billing.Invoice, error) {
	q := builder().Select(r.columns...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": invoiceID, "clinic_id": appctx.GetClinicID(ctx)})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv billing.Invoice
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", invoiceID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get invoice: %w", err))
	}
	return &inv, nil
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []billing.InvoiceLine) error {
	querier := r.txManager.GetQuerier(ctx)

	if _, err := querier.Exec(ctx, "DELETE FROM "+invoiceLinesTable+" WHERE invoice_id = $1", invoiceID); err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete invoice lines: %w", err))
	}
	if len(lines) == 0 {
		return nil
	}

	q := builder().Insert(invoiceLinesTable).Columns(
		"invoice_id", "line_no", "type", "ref_type", "ref_id",
		"description", "unit_cost", "qty",
	)
	for _, line := range lines {
		q = q.Values(
			invoiceID, line.LineNo, line.Type, line.RefType, line.RefID,
			line.Description, line.UnitCost, line.Qty,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert invoice lines: %w", err))
	}
	return nil
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]billing.InvoiceLine, error) {
	q := builder().Select(r.lineCols...).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("line_no")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []billing.InvoiceLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("get invoice lines: %w", err))
	}
	return lines, nil
}

func (r *InvoiceRepo) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	q := builder().Select(r.columns...).
		From(invoicesTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("date DESC")

	if filter.OwnerID != nil {
		q = q.Where(squirrel.Eq{"owner_id": *filter.OwnerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"date": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var invoices []*billing.Invoice
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &invoices, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list invoices: %w", err))
	}
	return invoices, nil
}
