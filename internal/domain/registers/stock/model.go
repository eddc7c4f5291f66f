// Package stock provides the inventory ledger: one StockLevel per product
// per clinic plus an append-only log of movements with post-change snapshots.
package stock

import (
	"time"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/dosage"
)

// MovementType defines the direction of a stock movement.
type MovementType string

const (
	MovementInbound    MovementType = "inbound"
	MovementOutbound   MovementType = "outbound"
	MovementAdjustment MovementType = "adjustment"
)

// MovementReason records the business cause of a movement.
type MovementReason string

const (
	ReasonPurchase     MovementReason = "purchase"
	ReasonSale         MovementReason = "sale"
	ReasonClinicalUse  MovementReason = "clinical-use"
	ReasonReturn       MovementReason = "return"
	ReasonSpoilage     MovementReason = "spoilage"
	ReasonLoss         MovementReason = "loss"
	ReasonManual       MovementReason = "manual-adjustment"
	ReasonInitialStock MovementReason = "initial-stock"
)

// Level is the current stock position for a product.
// Invariant: Units >= 0, 0 <= Doses < product.DosesPerUnit.
type Level struct {
	ProductID id.ID  `db:"product_id" json:"productId"`
	ClinicID  string `db:"clinic_id" json:"clinicId"`

	Units int64       `db:"units" json:"stockUnits"`
	Doses types.Doses `db:"doses" json:"stockDoses"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Stock returns the level as a conversion-engine pair.
func (l *Level) Stock() dosage.Stock {
	return dosage.Stock{Units: l.Units, Doses: l.Doses}
}

// Apply overwrites the pair from a conversion-engine result.
func (l *Level) Apply(s dosage.Stock, at time.Time) {
	l.Units = s.Units
	l.Doses = s.Doses
	l.LastMovementAt = at
	l.UpdatedAt = at
}

// Movement is one immutable ledger entry. Movements are never updated or
// deleted; corrections are new movements.
type Movement struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Type      MovementType   `db:"type" json:"type"`
	Reason    MovementReason `db:"reason" json:"reason"`

	// Quantity moved, expressed as whole units and/or doses.
	QtyUnits int64       `db:"qty_units" json:"qtyUnits"`
	QtyDoses types.Doses `db:"qty_doses" json:"qtyDoses"`

	// Post-mutation snapshot of the level.
	ResultUnits int64       `db:"result_units" json:"resultUnits"`
	ResultDoses types.Doses `db:"result_doses" json:"resultDoses"`

	// Polymorphic reference to the originating business event.
	RefType string `db:"ref_type" json:"refType,omitempty"`
	RefID   *id.ID `db:"ref_id" json:"refId,omitempty"`

	Note  string `db:"note" json:"note,omitempty"`
	Actor string `db:"actor" json:"actor,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// newMovement builds a movement from an applied quantity and the resulting level.
func newMovement(
	level *Level,
	mType MovementType,
	reason MovementReason,
	qty decimal.Decimal,
	wholeUnits bool,
	refType string,
	refID *id.ID,
	note, actor string,
	at time.Time,
) Movement {
	m := Movement{
		ID:          id.New(),
		ClinicID:    level.ClinicID,
		ProductID:   level.ProductID,
		Type:        mType,
		Reason:      reason,
		ResultUnits: level.Units,
		ResultDoses: level.Doses,
		RefType:     refType,
		RefID:       refID,
		Note:        note,
		Actor:       actor,
		CreatedAt:   at,
	}
	if wholeUnits {
		m.QtyUnits = qty.IntPart()
	} else {
		m.QtyDoses = qty
	}
	return m
}
