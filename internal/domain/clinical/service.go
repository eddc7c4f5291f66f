package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/id"
	"vetpos/internal/core/tx"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/registers/stock"
	"vetpos/pkg/logger"
)

// Service records clinical events together with their stock consumption
// and pending charge. The record and the movement succeed or fail as one.
type Service struct {
	repo      Repository
	products  *product.Service
	stock     *stock.Service
	billing   *billing.Service
	txManager tx.Manager
}

// NewService creates a new clinical service.
func NewService(
	repo Repository,
	products *product.Service,
	stockSvc *stock.Service,
	billingSvc *billing.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		stock:     stockSvc,
		billing:   billingSvc,
		txManager: txManager,
	}
}

// ConsumeInput describes one inventory-consuming clinical event.
type ConsumeInput struct {
	Type      EventType
	ProductID id.ID
	Qty       decimal.Decimal
	WholeUnit bool

	PatientID *id.ID
	OwnerID   *id.ID

	// ChargeOverride replaces the catalog price when set.
	ChargeOverride *types.Money

	Notes string
}

// ConsumeForEvent consumes stock for a clinical event, records the event
// and opens a pending invoice for its charge. Insufficient stock aborts
// the clinical record itself.
func (s *Service) ConsumeForEvent(ctx context.Context, in ConsumeInput) (*Event, error) {
	now := time.Now().UTC()
	e := &Event{
		ID:          id.New(),
		ClinicID:    appctx.GetClinicID(ctx),
		Type:        in.Type,
		PatientID:   in.PatientID,
		OwnerID:     in.OwnerID,
		ProductID:   in.ProductID,
		Qty:         in.Qty,
		WholeUnit:   in.WholeUnit,
		Charge:      types.Zero(),
		Notes:       in.Notes,
		PerformedBy: appctx.GetUserID(ctx),
		Date:        now,
		CreatedAt:   now,
	}
	if err := e.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetActive(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if _, err := s.stock.Consume(ctx, stock.ConsumeInput{
			Product:    p,
			Qty:        in.Qty,
			WholeUnits: in.WholeUnit,
			Reason:     stock.ReasonClinicalUse,
			RefType:    string(in.Type),
			RefID:      &e.ID,
			Note:       in.Notes,
		}); err != nil {
			return err
		}

		charge := p.PriceFor(in.WholeUnit).Mul(in.Qty)
		if in.ChargeOverride != nil {
			charge = *in.ChargeOverride
		}
		e.Charge = charge

		inv := billing.NewInvoice(e.ClinicID, charge)
		inv.OwnerID = in.OwnerID
		inv.PatientID = in.PatientID
		inv.Lines = []billing.InvoiceLine{{
			LineNo:      1,
			Type:        invoiceLineType(in.Type),
			RefType:     string(in.Type),
			RefID:       &e.ID,
			Description: p.Name,
			UnitCost:    charge.Div(in.Qty),
			Qty:         in.Qty,
		}}
		if err := s.billing.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		e.InvoiceID = &inv.ID

		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create clinical event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "clinical consumption recorded",
		"event_id", e.ID,
		"type", e.Type,
		"product_id", e.ProductID,
		"qty", e.Qty,
	)
	return e, nil
}

// GetByID returns one clinical event.
func (s *Service) GetByID(ctx context.Context, eventID id.ID) (*Event, error) {
	return s.repo.GetByID(ctx, eventID)
}

// List returns clinical events matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	return s.repo.List(ctx, filter)
}

func invoiceLineType(t EventType) billing.LineType {
	switch t {
	case EventTreatment:
		return billing.LineTreatment
	case EventVaccination:
		return billing.LineVaccination
	case EventDeworming:
		return billing.LineDeworming
	case EventGrooming:
		return billing.LineGrooming
	default:
		return billing.LineService
	}
}
