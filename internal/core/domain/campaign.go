package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Campaign statuses. Transitions are monotonic and driven by the settlement
// scheduler: pending -> active -> closing -> settled.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusClosing = "closing"
	StatusSettled = "settled"
)

// Campaign is a time-boxed auction over a single product. Parameters are
// immutable once the campaign is active.
type Campaign struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Coeffs    Coefficients
	Status    string
	CreatedAt time.Time

	// Product is populated on reads that join the product row.
	Product *Product
}

// Coefficients are the three non-negative weights of the score formula.
type Coefficients struct {
	Alpha decimal.Decimal
	Beta  decimal.Decimal
	Gamma decimal.Decimal
}

// AcceptsBids reports whether a bid submitted at now is admissible: the
// campaign must have been activated and now must fall inside its window.
func (c *Campaign) AcceptsBids(now time.Time) bool {
	return c.Status == StatusActive && !now.Before(c.StartTime) && now.Before(c.EndTime)
}

// Ended reports whether the campaign window has passed.
func (c *Campaign) Ended(now time.Time) bool {
	return !now.Before(c.EndTime)
}
