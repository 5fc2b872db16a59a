package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
)

const movementColumns = `id, contract_id, seq, kind, amount, movement_date,
	description, paid_so_far, created_at`

type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends one movement. A clash on (contract_id, seq) surfaces as
// domain.ErrInvalidMovement; the caller holds the contract lock so it only
// happens when that lock was skipped.
func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ContractID, m.Seq, m.Kind, m.Amount, m.Date,
		m.Description, m.PaidSoFar, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: seq %d taken: %w", m.Seq, domain.ErrInvalidMovement)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MovementRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Movement, error) {
	return listMovements(ctx, r.db, contractID)
}

// ListByContractTx reads the log inside tx, after the contract row is locked.
func (r *MovementRepository) ListByContractTx(ctx context.Context, tx *sql.Tx, contractID uuid.UUID) ([]domain.Movement, error) {
	return listMovements(ctx, tx, contractID)
}

func listMovements(ctx context.Context, q querier, contractID uuid.UUID) ([]domain.Movement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		WHERE contract_id = $1
		ORDER BY seq`, contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByContract: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByContract: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByContract: rows: %w", err)
	}
	return movements, nil
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var m domain.Movement
	err := s.Scan(
		&m.ID, &m.ContractID, &m.Seq, &m.Kind, &m.Amount, &m.Date,
		&m.Description, &m.PaidSoFar, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
