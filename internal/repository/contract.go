package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
)

const contractColumns = `id, code, name, client, contract_number,
	contract_amount, advance_percentage, guarantee_fund_percentage,
	start_date, estimated_end_date, status, created_at`

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contracts (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Code, c.Name, c.Client, c.ContractNumber,
		c.Terms.ContractAmount, c.Terms.AdvancePercentage, c.Terms.GuaranteeFundPercentage,
		c.StartDate, c.EstimatedEndDate, c.Status, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrContractExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id,
	)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// GetForUpdate locks the contract row, serialising appends to its movement log.
func (r *ContractRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Contract, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id,
	)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

// List returns contracts ordered by code. A nil status returns every contract.
func (r *ContractRepository) List(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY code`, status,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var contracts []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return contracts, nil
}

func scanContract(s scanner) (*domain.Contract, error) {
	var c domain.Contract
	err := s.Scan(
		&c.ID, &c.Code, &c.Name, &c.Client, &c.ContractNumber,
		&c.Terms.ContractAmount, &c.Terms.AdvancePercentage, &c.Terms.GuaranteeFundPercentage,
		&c.StartDate, &c.EstimatedEndDate, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
