// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// PaymentTolerance absorbs rounding noise when comparing paid amounts
// against invoice totals (0.01 of the major currency unit).
var PaymentTolerance = decimal.New(1, -2)

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Doses represents a dose quantity. Doses divide whole units by a product's
// doses-per-unit factor, so the same exact decimal arithmetic applies.
type Doses = decimal.Decimal

// NewDoses creates a dose quantity from an int64 count.
func NewDoses(n int64) Doses {
	return decimal.NewFromInt(n)
}
