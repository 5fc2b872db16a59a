package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
)

const overheadColumns = `id, description, amount, incurred_on, created_at`

type OverheadRepository struct {
	db *sql.DB
}

func NewOverheadRepository(db *sql.DB) *OverheadRepository {
	return &OverheadRepository{db: db}
}

func (r *OverheadRepository) Create(ctx context.Context, e *domain.OverheadExpense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO overhead_expenses (`+overheadColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Description, e.Amount, e.IncurredOn, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListBetween returns the overhead incurred in [period.From, period.To).
func (r *OverheadRepository) ListBetween(ctx context.Context, period domain.Period) ([]domain.OverheadExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+overheadColumns+` FROM overhead_expenses
		WHERE incurred_on >= $1 AND incurred_on < $2
		ORDER BY incurred_on, created_at`,
		period.From, period.To,
	)
	if err != nil {
		return nil, fmt.Errorf("ListBetween: %w", err)
	}
	defer rows.Close()

	var expenses []domain.OverheadExpense
	for rows.Next() {
		var e domain.OverheadExpense
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.IncurredOn, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListBetween: scan: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBetween: rows: %w", err)
	}
	return expenses, nil
}
