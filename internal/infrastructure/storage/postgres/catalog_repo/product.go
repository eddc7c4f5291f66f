// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories. Every query is scoped to the clinic in context.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/infrastructure/storage/postgres"
)

const productTable = "cat_products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[product.Product](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	p.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(productTable).SetMap(postgres.StructToMap(p))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert product: %w", err))
	}
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	data := postgres.StructToMap(p)
	delete(data, "id")
	delete(data, "clinic_id")
	delete(data, "created_at")

	q := builder().Update(productTable).
		SetMap(data).
		Where(squirrel.Eq{"id": p.ID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update product: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID.String())
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := builder().Select(r.columns...).
		From(productTable).
		Where(squirrel.Eq{"id": productID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get product: %w", err))
	}
	return &p, nil
}

func (r *ProductRepo) FindByName(ctx context.Context, name string) (*product.Product, error) {
	q := builder().Select(r.columns...).
		From(productTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		Where("lower(name) = lower(?)", name)
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", name)
		}
		return nil, apperror.NewDatabase(fmt.Errorf("find product: %w", err))
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	q := builder().Select(r.columns...).
		From(productTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("name")

	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if filter.Search != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Search+"%")
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

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list products: %w", err))
	}
	return items, nil
}
