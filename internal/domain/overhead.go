package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverheadExpense is a shared cost (office, administration) not charged to any
// single contract.
type OverheadExpense struct {
	ID          uuid.UUID
	Description string
	Amount      decimal.Decimal
	IncurredOn  time.Time
	CreatedAt   time.Time
}

// Period is a half-open date range [From, To).
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return fmt.Errorf("period bounds are required: %w", ErrInvalidPeriod)
	}
	if !p.To.After(p.From) {
		return fmt.Errorf("period end must be after start: %w", ErrInvalidPeriod)
	}
	return nil
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}
