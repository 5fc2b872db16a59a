package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentCategory string

const (
	PaymentCategoryPurchaseOrder PaymentCategory = "purchase_order"
	PaymentCategoryPayroll       PaymentCategory = "payroll"
	PaymentCategoryOther         PaymentCategory = "other"
)

func (c PaymentCategory) IsValid() bool {
	switch c {
	case PaymentCategoryPurchaseOrder, PaymentCategoryPayroll, PaymentCategoryOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusScheduled PaymentStatus = "scheduled"
	PaymentStatusProcessed PaymentStatus = "processed"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusScheduled, PaymentStatusProcessed, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is a direct-cost disbursement charged to a contract.
type Payment struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Code        string
	Category    PaymentCategory
	Amount      decimal.Decimal
	Status      PaymentStatus
	PaidAt      *time.Time
	ScheduledAt *time.Time
	Reference   string
	CreatedAt   time.Time
}

// EffectiveDate is the actual payment date, falling back to the scheduled one.
func (p Payment) EffectiveDate() (time.Time, bool) {
	if p.PaidAt != nil && !p.PaidAt.IsZero() {
		return *p.PaidAt, true
	}
	if p.ScheduledAt != nil && !p.ScheduledAt.IsZero() {
		return *p.ScheduledAt, true
	}
	return time.Time{}, false
}
