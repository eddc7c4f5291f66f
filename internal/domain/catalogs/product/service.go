package product

import (
	"context"
	"time"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/pkg/logger"
)

// Service provides business logic for the Product catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new product.
// Name uniqueness is enforced per clinic.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.FindByName(ctx, p.Name); err == nil && existing != nil {
		return apperror.NewDuplicate("product", "name", p.Name)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// Update persists price/metadata edits. Historical movements are unaffected.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.FindByName(ctx, p.Name); err == nil && existing != nil && existing.ID != p.ID {
		return apperror.NewDuplicate("product", "name", p.Name)
	}

	p.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, p)
}

// GetByID retrieves a product owned by the clinic in context.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetActive retrieves a product and rejects inactive ones.
// Used by the sale orchestrator and clinical consumption paths.
func (s *Service) GetActive(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperror.NewInvalidState("product is inactive").
			WithDetail("product_id", productID.String())
	}
	return p, nil
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate marks a product as no longer sellable.
func (s *Service) Deactivate(ctx context.Context, productID id.ID) error {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, p)
}
