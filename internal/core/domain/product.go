package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the unit inventory a campaign sells. Quota is fixed at
// creation; Remaining and Version are mutated only by the inventory guard.
// Version is bumped on every decrement and backs the optimistic check.
type Product struct {
	ID        uuid.UUID
	Name      string
	Quota     int
	Remaining int
	MinPrice  decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
