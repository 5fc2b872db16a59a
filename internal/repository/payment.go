package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, contract_id, code, category, amount, status,
	paid_at, scheduled_at, reference, created_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ContractID, p.Code, p.Category, p.Amount, p.Status,
		p.PaidAt, p.ScheduledAt, p.Reference, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByContract returns the contract's non-cancelled payments whose effective
// date falls in period. Payments with neither date are always included so the
// aggregator can report them as skipped.
func (r *PaymentRepository) ListByContract(ctx context.Context, contractID uuid.UUID, period domain.Period) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE contract_id = $1
		  AND status <> $2
		  AND (
			COALESCE(paid_at, scheduled_at) IS NULL
			OR (COALESCE(paid_at, scheduled_at) >= $3 AND COALESCE(paid_at, scheduled_at) < $4)
		  )
		ORDER BY COALESCE(paid_at, scheduled_at) NULLS LAST, created_at`,
		contractID, domain.PaymentStatusCancelled, period.From, period.To,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByContract: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByContract: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByContract: rows: %w", err)
	}
	return payments, nil
}

// SumByContract totals the contract's non-cancelled payments regardless of date.
func (r *PaymentRepository) SumByContract(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE contract_id = $1 AND status <> $2`,
		contractID, domain.PaymentStatusCancelled,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByContract: %w", err)
	}
	return total, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	err := s.Scan(
		&p.ID, &p.ContractID, &p.Code, &p.Category, &p.Amount, &p.Status,
		&p.PaidAt, &p.ScheduledAt, &p.Reference, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
