package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusPaused    ContractStatus = "paused"
	ContractStatusFinished  ContractStatus = "finished"
	ContractStatusCancelled ContractStatus = "cancelled"
)

func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusActive, ContractStatusPaused, ContractStatusFinished, ContractStatusCancelled:
		return true
	}
	return false
}

// ContractTerms are fixed when the contract is created and never re-entered.
type ContractTerms struct {
	ContractAmount          decimal.Decimal
	AdvancePercentage       decimal.Decimal
	GuaranteeFundPercentage decimal.Decimal
}

func (t ContractTerms) InitialAdvance() decimal.Decimal {
	return PercentOf(t.ContractAmount, t.AdvancePercentage)
}

func (t ContractTerms) GuaranteeFundCap() decimal.Decimal {
	return PercentOf(t.ContractAmount, t.GuaranteeFundPercentage)
}

func (t ContractTerms) Validate() error {
	if !t.ContractAmount.IsPositive() {
		return fmt.Errorf("contract amount must be positive: %w", ErrInvalidTerms)
	}
	if !inPercentRange(t.AdvancePercentage) {
		return fmt.Errorf("advance percentage must be within 0-100: %w", ErrInvalidTerms)
	}
	if !inPercentRange(t.GuaranteeFundPercentage) {
		return fmt.Errorf("guarantee fund percentage must be within 0-100: %w", ErrInvalidTerms)
	}
	return nil
}

func inPercentRange(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

type Contract struct {
	ID               uuid.UUID
	Code             string
	Name             string
	Client           string
	ContractNumber   string
	Terms            ContractTerms
	StartDate        *time.Time
	EstimatedEndDate *time.Time
	Status           ContractStatus
	CreatedAt        time.Time
}
