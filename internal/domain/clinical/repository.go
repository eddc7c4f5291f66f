package clinical

import (
	"context"
	"time"

	"vetpos/internal/core/id"
)

// Repository defines persistence for clinical events.
// Implementations scope every query to the clinic in context.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, eventID id.ID) (*Event, error)
	List(ctx context.Context, filter ListFilter) ([]*Event, error)
}

// ListFilter for clinical event listing.
type ListFilter struct {
	Type      *EventType
	PatientID *id.ID
	ProductID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
