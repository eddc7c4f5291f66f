// Package auth_repo provides the PostgreSQL implementation of the staff
// user repository.
package auth_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"vetpos/internal/core/apperror"
	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/auth"
	"vetpos/internal/infrastructure/storage/postgres"
)

const usersTable = "sys_users"

// UserRepo implements auth.Repository.
type UserRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[auth.User](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	if u.ClinicID == "" {
		u.ClinicID = appctx.GetClinicID(ctx)
	}

	q := builder().Insert(usersTable).SetMap(postgres.StructToMap(u))
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := builder().Select(r.columns...).
		From(usersTable).
		Where(squirrel.Eq{"id": userID})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get user: %w", err))
	}
	return &u, nil
}

// GetByEmail is a global lookup; login runs before any clinic context
// exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := builder().Select(r.columns...).
		From(usersTable).
		Where(squirrel.Eq{"email": strings.ToLower(email)})
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", email)
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get user by email: %w", err))
	}
	return &u, nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID id.ID, at time.Time) error {
	q := builder().Update(usersTable).
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": userID})
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update last login: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}
	return nil
}
