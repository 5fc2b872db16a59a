package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementKindEstimation MovementKind = "estimation"
	MovementKindAdditive   MovementKind = "additive"
	MovementKindDeductive  MovementKind = "deductive"
)

func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindEstimation, MovementKindAdditive, MovementKindDeductive:
		return true
	}
	return false
}

// IsChangeOrder reports whether the kind amends the contract value.
func (k MovementKind) IsChangeOrder() bool {
	return k == MovementKindAdditive || k == MovementKindDeductive
}

// Movement is one entry of a contract's append-only log. Corrections are new
// movements; a stored movement is never edited.
type Movement struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Seq         int64
	Kind        MovementKind
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	PaidSoFar   decimal.Decimal
	CreatedAt   time.Time
}

// Magnitude is the unsigned amount. Deductives may be entered signed.
func (m Movement) Magnitude() decimal.Decimal {
	if m.Kind == MovementKindDeductive {
		return m.Amount.Abs()
	}
	return m.Amount
}
