package owner

import (
	"context"
	"time"

	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/pkg/logger"
)

// Service provides business logic for the Owner catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Owner service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new owner.
func (s *Service) Create(ctx context.Context, o *Owner) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	logger.Info(ctx, "owner created", "id", o.ID, "name", o.Name)
	return nil
}

// Update persists contact edits. Credit balance is not writable here;
// it only moves through AddCredit and the sale/payment flows.
func (s *Service) Update(ctx context.Context, o *Owner) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, o)
}

// GetByID retrieves an owner.
func (s *Service) GetByID(ctx context.Context, ownerID id.ID) (*Owner, error) {
	return s.repo.GetByID(ctx, ownerID)
}

// List retrieves owners with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Owner, error) {
	return s.repo.List(ctx, filter)
}

// AddCredit tops up an owner's store credit (unused prepayment, refund
// retention). Callers wrap this in the transaction of the business event
// that produced the credit.
func (s *Service) AddCredit(ctx context.Context, ownerID id.ID, amount types.Money) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := s.repo.AdjustCredit(ctx, ownerID, amount); err != nil {
		return err
	}
	logger.Info(ctx, "owner credit added", "owner_id", ownerID, "amount", amount)
	return nil
}
