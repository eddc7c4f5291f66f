package stock

import (
	"context"
	"time"

	"vetpos/internal/core/id"
)

// Repository defines operations for the stock ledger.
// Implementations scope every query to the clinic in context.
type Repository interface {
	// Level operations

	// CreateLevel inserts the first level row for a product.
	// Fails with a duplicate error if one already exists.
	CreateLevel(ctx context.Context, level *Level) error

	// GetLevel returns the current level, NotFound if never initialized.
	GetLevel(ctx context.Context, productID id.ID) (*Level, error)

	// GetLevelForUpdate returns the level with a row lock. The dosage check
	// and the persisted write must happen under this lock in one transaction.
	GetLevelForUpdate(ctx context.Context, productID id.ID) (*Level, error)

	// UpdateLevel persists a mutated level.
	UpdateLevel(ctx context.Context, level *Level) error

	// ListLevels returns levels matching the filter.
	ListLevels(ctx context.Context, filter LevelFilter) ([]*Level, error)

	// Movement operations

	// CreateMovement appends one immutable ledger entry.
	CreateMovement(ctx context.Context, m *Movement) error

	// ListMovements returns movement history, newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]*Movement, error)
}

// LevelFilter for level queries.
type LevelFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool
	Limit       int
	Offset      int
}

// MovementFilter for movement history.
type MovementFilter struct {
	ProductID *id.ID
	Reason    *MovementReason
	RefType   string
	RefID     *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
