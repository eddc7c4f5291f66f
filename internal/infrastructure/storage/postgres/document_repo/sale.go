// Package document_repo provides PostgreSQL implementations for document
// repositories. Every query is scoped to the clinic in context.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/documents/sale"
	"vetpos/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	columns   []string
	lineCols  []string
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[sale.Sale](),
		lineCols:  postgres.ExtractDBColumns[sale.Line](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	s.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(salesTable).SetMap(postgres.StructToMap(s))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert sale: %w", err))
	}
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	data := postgres.StructToMap(s)
	delete(data, "id")
	delete(data, "clinic_id")
	delete(data, "created_at")

	q := builder().Update(salesTable).
		SetMap(data).
		Where(squirrel.Eq{"id": s.ID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update sale: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, false)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, true)
}

func (r *SaleRepo) get(ctx context.Context, saleID id.ID, forUpdate bool) (*sale.Sale, error) {
	q := builder().Select(r.columns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID, "clinic_id": appctx.GetClinicID(ctx)})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get sale: %w", err))
	}
	return &s, nil
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	querier := r.txManager.GetQuerier(ctx)

	if _, err := querier.Exec(ctx, "DELETE FROM "+saleLinesTable+" WHERE sale_id = $1", saleID); err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete sale lines: %w", err))
	}
	if len(lines) == 0 {
		return nil
	}

	q := builder().Insert(saleLinesTable).Columns(
		"sale_id", "line_no", "product_id", "description",
		"qty", "whole_unit", "unit_price", "discount", "total",
	)
	for _, line := range lines {
		q = q.Values(
			saleID, line.LineNo, line.ProductID, line.Description,
			line.Qty, line.WholeUnit, line.UnitPrice, line.Discount, line.Total,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert sale lines: %w", err))
	}
	return nil
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	q := builder().Select(r.lineCols...).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("get sale lines: %w", err))
	}
	return lines, nil
}

func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	q := builder().Select(r.columns...).
		From(salesTable).
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

	var sales []*sale.Sale
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &sales, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list sales: %w", err))
	}
	return sales, nil
}
