package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/tx"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/pkg/logger"
)

// Service provides business operations for the stock ledger.
// Every mutation locks the level row, runs the conversion engine, persists
// the new pair and appends the movement in one transaction. Nested calls
// (from the sale orchestrator) reuse the caller's transaction.
type Service struct {
	repo      Repository
	products  product.Repository
	txManager tx.Manager
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, products product.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
	}
}

// InitializeInput seeds the first level for a product.
type InitializeInput struct {
	ProductID id.ID
	Units     int64
	Doses     decimal.Decimal
	Note      string
}

// ConsumeInput subtracts stock for a resolved product.
type ConsumeInput struct {
	Product    *product.Product
	Qty        decimal.Decimal
	WholeUnits bool
	Reason     MovementReason
	RefType    string
	RefID      *id.ID
	Note       string
}

// RestockInput adds stock back (purchase, return, sale reversal).
type RestockInput struct {
	Product    *product.Product
	Qty        decimal.Decimal
	WholeUnits bool
	Reason     MovementReason
	RefType    string
	RefID      *id.ID
	Note       string
}

// Initialize creates the level for a product that has never been stocked,
// together with its initial-stock movement.
func (s *Service) Initialize(ctx context.Context, in InitializeInput) (*Level, error) {
	if in.Units < 0 || in.Doses.IsNegative() {
		return nil, apperror.NewValidation("initial stock cannot be negative")
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	if in.Doses.GreaterThanOrEqual(decimal.NewFromInt(p.DosesPerUnit)) {
		return nil, apperror.NewValidation("loose doses must be below doses per unit").
			WithDetail("doses_per_unit", p.DosesPerUnit)
	}
	if !in.Doses.IsZero() && !p.Divisible {
		return nil, apperror.NewProductNotDivisible(p.ID.String())
	}

	var level *Level
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if existing, err := s.repo.GetLevel(ctx, in.ProductID); err == nil && existing != nil {
			return apperror.NewConflict("stock already initialized for product").
				WithDetail("product_id", in.ProductID.String())
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		now := time.Now().UTC()
		level = &Level{
			ProductID:      in.ProductID,
			ClinicID:       appctx.GetClinicID(ctx),
			Units:          in.Units,
			Doses:          in.Doses,
			LastMovementAt: now,
			UpdatedAt:      now,
		}
		if err := s.repo.CreateLevel(ctx, level); err != nil {
			return fmt.Errorf("create level: %w", err)
		}

		m := newMovement(level, MovementInbound, ReasonInitialStock,
			decimal.NewFromInt(in.Units), true, "", nil, in.Note, appctx.GetUserID(ctx), now)
		m.QtyDoses = in.Doses
		if err := s.repo.CreateMovement(ctx, &m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock initialized",
		"product_id", in.ProductID,
		"units", in.Units,
		"doses", in.Doses,
	)
	return level, nil
}

// Consume subtracts in.Qty from the product's level and appends the
// outbound movement. Fails before any write when stock is insufficient.
func (s *Service) Consume(ctx context.Context, in ConsumeInput) (*Level, error) {
	return s.mutate(ctx, in.Product, in.Qty, in.WholeUnits, false,
		in.Reason, in.RefType, in.RefID, in.Note)
}

// Restock adds in.Qty back to the product's level with carry normalization
// and appends the inbound movement.
func (s *Service) Restock(ctx context.Context, in RestockInput) (*Level, error) {
	return s.mutate(ctx, in.Product, in.Qty, in.WholeUnits, true,
		in.Reason, in.RefType, in.RefID, in.Note)
}

func (s *Service) mutate(
	ctx context.Context,
	p *product.Product,
	qty decimal.Decimal,
	wholeUnits, inbound bool,
	reason MovementReason,
	refType string,
	refID *id.ID,
	note string,
) (*Level, error) {
	if p == nil {
		return nil, apperror.NewValidation("product is required")
	}

	var level *Level
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		level, err = s.repo.GetLevelForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}

		profile := p.DosageProfile()
		var next = level.Stock()
		if inbound {
			next, err = profile.Restock(next, qty, wholeUnits)
		} else {
			next, err = profile.Consume(next, qty, wholeUnits)
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		level.Apply(next, now)
		if err := s.repo.UpdateLevel(ctx, level); err != nil {
			return fmt.Errorf("update level: %w", err)
		}

		mType := MovementOutbound
		if inbound {
			mType = MovementInbound
		}
		if reason == ReasonManual {
			mType = MovementAdjustment
		}
		m := newMovement(level, mType, reason, qty, wholeUnits,
			refType, refID, note, appctx.GetUserID(ctx), now)
		if err := s.repo.CreateMovement(ctx, &m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// GetLevel returns the current level for a product.
func (s *Service) GetLevel(ctx context.Context, productID id.ID) (*Level, error) {
	return s.repo.GetLevel(ctx, productID)
}

// ListLevels returns levels matching the filter.
func (s *Service) ListLevels(ctx context.Context, filter LevelFilter) ([]*Level, error) {
	return s.repo.ListLevels(ctx, filter)
}

// LowStockItem pairs a level with its product for threshold reporting.
type LowStockItem struct {
	Product *product.Product `json:"product"`
	Level   *Level           `json:"level"`
}

// ListLowStock returns active products whose total available doses fall at
// or below their configured minimum.
func (s *Service) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	levels, err := s.repo.ListLevels(ctx, LevelFilter{})
	if err != nil {
		return nil, err
	}

	items := make([]LowStockItem, 0)
	for _, level := range levels {
		p, err := s.products.GetByID(ctx, level.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if !p.Active {
			continue
		}
		total := p.DosageProfile().TotalDoses(level.Stock())
		if total.LessThanOrEqual(p.MinStockDoses) {
			items = append(items, LowStockItem{Product: p, Level: level})
		}
	}
	return items, nil
}

// Movements returns movement history for auditing.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]*Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}
