// Package dosage implements the unit/dose conversion arithmetic for the
// stock ledger. Everything here is pure: callers persist the resulting
// stock pair and append the corresponding movement in the same unit of work.
package dosage

import (
	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/types"
)

// Profile carries the product attributes the arithmetic depends on.
type Profile struct {
	// ProductID is used only for error details.
	ProductID string

	// DosesPerUnit is how many doses one whole unit opens into (>= 1).
	DosesPerUnit int64

	// Divisible allows consumption/restock expressed in doses.
	Divisible bool
}

// Stock is a (whole units, loose doses) pair.
// In a consistent state Units >= 0, 0 <= Doses < DosesPerUnit.
type Stock struct {
	Units int64
	Doses types.Doses
}

// TotalDoses returns Units*DosesPerUnit + Doses.
func (p Profile) TotalDoses(s Stock) types.Doses {
	return decimal.NewFromInt(s.Units * p.DosesPerUnit).Add(s.Doses)
}

// Consume subtracts qty from s. With wholeUnits=true qty is an integer count
// of whole units; otherwise qty is a dose count, which requires a divisible
// product. Loose doses are drawn first, then whole units are opened.
func (p Profile) Consume(s Stock, qty decimal.Decimal, wholeUnits bool) (Stock, error) {
	if !qty.IsPositive() {
		return s, apperror.NewValidation("quantity must be positive")
	}

	if wholeUnits {
		if !qty.IsInteger() {
			return s, apperror.NewValidation("whole-unit quantity must be an integer")
		}
		units := qty.IntPart()
		if s.Units < units {
			return s, apperror.NewInsufficientStock(p.ProductID,
				qty.String(), decimal.NewFromInt(s.Units).String())
		}
		return Stock{Units: s.Units - units, Doses: s.Doses}, nil
	}

	if !p.Divisible {
		return s, apperror.NewProductNotDivisible(p.ProductID)
	}

	available := p.TotalDoses(s)
	if available.LessThan(qty) {
		return s, apperror.NewInsufficientStock(p.ProductID, qty.String(), available.String())
	}

	// Draw from loose doses first.
	if s.Doses.GreaterThanOrEqual(qty) {
		return Stock{Units: s.Units, Doses: s.Doses.Sub(qty)}, nil
	}

	remaining := qty.Sub(s.Doses)
	perUnit := decimal.NewFromInt(p.DosesPerUnit)
	unitsToOpen := remaining.Div(perUnit).Ceil().IntPart()
	if s.Units < unitsToOpen {
		// Unreachable given the total check above; kept as an invariant guard.
		return s, apperror.NewInsufficientStock(p.ProductID, qty.String(), available.String())
	}

	leftover := decimal.NewFromInt(unitsToOpen).Mul(perUnit).Sub(remaining)
	return Stock{Units: s.Units - unitsToOpen, Doses: leftover}, nil
}

// Restock adds qty back to s (purchases, returns, sale reversal).
// Dose restock normalizes the carry so Doses stays below DosesPerUnit.
func (p Profile) Restock(s Stock, qty decimal.Decimal, wholeUnits bool) (Stock, error) {
	if !qty.IsPositive() {
		return s, apperror.NewValidation("quantity must be positive")
	}

	if wholeUnits {
		if !qty.IsInteger() {
			return s, apperror.NewValidation("whole-unit quantity must be an integer")
		}
		return Stock{Units: s.Units + qty.IntPart(), Doses: s.Doses}, nil
	}

	if !p.Divisible {
		return s, apperror.NewProductNotDivisible(p.ProductID)
	}

	perUnit := decimal.NewFromInt(p.DosesPerUnit)
	doses := s.Doses.Add(qty)
	carry := doses.Div(perUnit).Floor().IntPart()
	return Stock{
		Units: s.Units + carry,
		Doses: doses.Sub(decimal.NewFromInt(carry).Mul(perUnit)),
	}, nil
}

// Valid reports whether s satisfies the ledger invariants for p.
func (p Profile) Valid(s Stock) bool {
	return s.Units >= 0 &&
		!s.Doses.IsNegative() &&
		s.Doses.LessThan(decimal.NewFromInt(p.DosesPerUnit))
}
