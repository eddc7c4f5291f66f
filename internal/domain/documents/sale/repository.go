package sale

import (
	"context"
	"time"

	"vetpos/internal/core/id"
)

// Repository defines persistence for sale documents.
// Implementations scope every query to the clinic in context.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	Update(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate locks the sale row, serializing cancellation against
	// concurrent payment activity.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	SaveLines(ctx context.Context, saleID id.ID, lines []Line) error
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	List(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

// ListFilter for sale listing.
type ListFilter struct {
	OwnerID  *id.ID
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
