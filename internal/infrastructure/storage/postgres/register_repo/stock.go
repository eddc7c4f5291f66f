// Package register_repo provides PostgreSQL implementations for register
// repositories. Every query is scoped to the clinic in context.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/registers/stock"
	"vetpos/internal/infrastructure/storage/postgres"
)

const (
	stockLevelsTable    = "reg_stock_levels"
	stockMovementsTable = "reg_stock_movements"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager    *postgres.TxManager
	levelCols    []string
	movementCols []string
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager:    txManager,
		levelCols:    postgres.ExtractDBColumns[stock.Level](),
		movementCols: postgres.ExtractDBColumns[stock.Movement](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *StockRepo) CreateLevel(ctx context.Context, level *stock.Level) error {
	level.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(stockLevelsTable).SetMap(postgres.StructToMap(level))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert stock level: %w", err))
	}
	return nil
}

func (r *StockRepo) GetLevel(ctx context.Context, productID id.ID) (*stock.Level, error) {
	return r.getLevel(ctx, productID, false)
}

// GetLevelForUpdate locks the level row. The conversion check and the
// persisted write happen under this lock in one transaction, serializing
// concurrent consumers of the same product.
func (r *StockRepo) GetLevelForUpdate(ctx context.Context, productID id.ID) (*stock.Level, error) {
	return r.getLevel(ctx, productID, true)
}

func (r *StockRepo) getLevel(ctx context.Context, productID id.ID, forUpdate bool) (*stock.Level, error) {
	q := builder().Select(r.levelCols...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"product_id": productID, "clinic_id": appctx.GetClinicID(ctx)})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level stock.Level
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", productID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get stock level: %w", err))
	}
	return &level, nil
}

func (r *StockRepo) UpdateLevel(ctx context.Context, level *stock.Level) error {
	q := builder().Update(stockLevelsTable).
		Set("units", level.Units).
		Set("doses", level.Doses).
		Set("last_movement_at", level.LastMovementAt).
		Set("updated_at", level.UpdatedAt).
		Where(squirrel.Eq{"product_id": level.ProductID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update stock level: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock level", level.ProductID.String())
	}
	return nil
}

func (r *StockRepo) ListLevels(ctx context.Context, filter stock.LevelFilter) ([]*stock.Level, error) {
	q := builder().Select(r.levelCols...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("product_id")

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}
	if filter.ExcludeZero {
		q = q.Where("(units > 0 OR doses > 0)")
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

	var levels []*stock.Level
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &levels, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list stock levels: %w", err))
	}
	return levels, nil
}

func (r *StockRepo) CreateMovement(ctx context.Context, m *stock.Movement) error {
	m.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(stockMovementsTable).SetMap(postgres.StructToMap(m))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert stock movement: %w", err))
	}
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]*stock.Movement, error) {
	q := builder().Select(r.movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("created_at DESC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Reason != nil {
		q = q.Where(squirrel.Eq{"reason": *filter.Reason})
	}
	if filter.RefType != "" {
		q = q.Where(squirrel.Eq{"ref_type": filter.RefType})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
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

	var movements []*stock.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list stock movements: %w", err))
	}
	return movements, nil
}
