package owner

import (
	"context"

	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
)

// Repository defines the interface for Owner persistence.
// Implementations scope every query to the clinic in context.
type Repository interface {
	Create(ctx context.Context, o *Owner) error
	Update(ctx context.Context, o *Owner) error
	GetByID(ctx context.Context, ownerID id.ID) (*Owner, error)
	List(ctx context.Context, filter ListFilter) ([]*Owner, error)

	// GetForUpdate retrieves an owner with a row lock, serializing
	// concurrent credit mutations.
	GetForUpdate(ctx context.Context, ownerID id.ID) (*Owner, error)

	// AdjustCredit applies an atomic delta to the credit balance.
	// A negative delta that would push the balance below zero must fail
	// without mutating the row.
	AdjustCredit(ctx context.Context, ownerID id.ID, delta types.Money) error
}

// ListFilter for owner listing.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
