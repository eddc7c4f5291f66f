package auth

import (
	"context"
	"time"

	"vetpos/internal/core/id"
)

// Repository defines persistence for staff users. Lookups by email are
// global (login happens before any clinic context exists); everything
// else is scoped by the user's own clinic.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID id.ID, at time.Time) error
}
