package product

import (
	"context"

	"vetpos/internal/core/id"
)

// Repository defines the interface for Product persistence.
// Implementations scope every query to the clinic in context.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	FindByName(ctx context.Context, name string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}

// ListFilter for product listing.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
