package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/infrastructure/storage/postgres"
)

const ownerTable = "cat_owners"

// OwnerRepo implements owner.Repository.
type OwnerRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewOwnerRepo creates a new owner repository.
func NewOwnerRepo(txManager *postgres.TxManager) *OwnerRepo {
	return &OwnerRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[owner.Owner](),
	}
}

func (r *OwnerRepo) Create(ctx context.Context, o *owner.Owner) error {
	o.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(ownerTable).SetMap(postgres.StructToMap(o))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert owner: %w", err))
	}
	return nil
}

func (r *OwnerRepo) Update(ctx context.Context, o *owner.Owner) error {
	data := postgres.StructToMap(o)
	delete(data, "id")
	delete(data, "clinic_id")
	delete(data, "created_at")
	// The balance only moves through AdjustCredit.
	delete(data, "credit_balance")

	q := builder().Update(ownerTable).
		SetMap(data).
		Where(squirrel.Eq{"id": o.ID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update owner: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("owner", o.ID.String())
	}
	return nil
}

func (r *OwnerRepo) GetByID(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	return r.get(ctx, ownerID, false)
}

// GetForUpdate locks the owner row for the rest of the transaction.
func (r *OwnerRepo) GetForUpdate(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	return r.get(ctx, ownerID, true)
}

func (r *OwnerRepo) get(ctx context.Context, ownerID id.ID, forUpdate bool) (*owner.Owner, error) {
	q := builder().Select(r.columns...).
		From(ownerTable).
		Where(squirrel.Eq{"id": ownerID, "clinic_id": appctx.GetClinicID(ctx)})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o owner.Owner
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("owner", ownerID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get owner: %w", err))
	}
	return &o, nil
}

// AdjustCredit applies an atomic delta to the credit balance. The guarded
// UPDATE refuses to take the balance below zero, so concurrent spenders
// cannot overdraw it.
func (r *OwnerRepo) AdjustCredit(ctx context.Context, ownerID id.ID, delta types.Money) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE cat_owners
		SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2 AND clinic_id = $3 AND credit_balance + $1 >= 0
	`, delta, ownerID, appctx.GetClinicID(ctx))
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("adjust credit: %w", err))
	}
	if tag.RowsAffected() == 0 {
		o, err := r.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		return apperror.NewInsufficientCredit(ownerID.String(),
			delta.Neg().String(), o.CreditBalance.String())
	}
	return nil
}

func (r *OwnerRepo) List(ctx context.Context, filter owner.ListFilter) ([]*owner.Owner, error) {
	q := builder().Select(r.columns...).
		From(ownerTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("name")

	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.Expr("name ILIKE ?", "%"+filter.Search+"%"),
			squirrel.Expr("phone ILIKE ?", "%"+filter.Search+"%"),
		})
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

	var items []*owner.Owner
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list owners: %w", err))
	}
	return items, nil
}
