// Package clinical_repo provides the PostgreSQL implementation of the
// clinical event repository.
package clinical_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"vetpos/internal/core/apperror"
	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/clinical"
	"vetpos/internal/infrastructure/storage/postgres"
)

const eventsTable = "doc_clinical_events"

// EventRepo implements clinical.Repository.
type EventRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewEventRepo creates a new clinical event repository.
func NewEventRepo(txManager *postgres.TxManager) *EventRepo {
	return &EventRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[clinical.Event](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *EventRepo) Create(ctx context.Context, e *clinical.Event) error {
	e.ClinicID = appctx.GetClinicID(ctx)

	q := builder().Insert(eventsTable).SetMap(postgres.StructToMap(e))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert clinical event: %w", err))
	}
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, eventID id.ID) (*clinical.Event, error) {
	q := builder().Select(r.columns...).
		From(eventsTable).
		Where(squirrel.Eq{"id": eventID, "clinic_id": appctx.GetClinicID(ctx)})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e clinical.Event
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("clinical event", eventID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get clinical event: %w", err))
	}
	return &e, nil
}

func (r *EventRepo) List(ctx context.Context, filter clinical.ListFilter) ([]*clinical.Event, error) {
	q := builder().Select(r.columns...).
		From(eventsTable).
		Where(squirrel.Eq{"clinic_id": appctx.GetClinicID(ctx)}).
		OrderBy("date DESC")

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.PatientID != nil {
		q = q.Where(squirrel.Eq{"patient_id": *filter.PatientID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
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

	var events []*clinical.Event
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &events, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("list clinical events: %w", err))
	}
	return events, nil
}
