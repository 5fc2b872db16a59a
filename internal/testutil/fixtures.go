package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
)

func Date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func Terms(amount, advance, guarantee string) domain.ContractTerms {
	return domain.ContractTerms{
		ContractAmount:          decimal.RequireFromString(amount),
		AdvancePercentage:       decimal.RequireFromString(advance),
		GuaranteeFundPercentage: decimal.RequireFromString(guarantee),
	}
}

func SeedContract(t *testing.T, db *sql.DB, code string, terms domain.ContractTerms, status domain.ContractStatus) *domain.Contract {
	t.Helper()

	c := &domain.Contract{
		ID:        uuid.New(),
		Code:      code,
		Name:      "Obra " + code,
		Client:    "Cliente " + code,
		Terms:     terms,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO contracts (id, code, name, client, contract_number,
			contract_amount, advance_percentage, guarantee_fund_percentage, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Code, c.Name, c.Client, c.ContractNumber,
		terms.ContractAmount, terms.AdvancePercentage, terms.GuaranteeFundPercentage,
		c.Status, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed contract %s: %v", code, err)
	}
	return c
}

// SeedPayment inserts a payment. An empty paidAt leaves the column NULL.
func SeedPayment(t *testing.T, db *sql.DB, contractID uuid.UUID, code, amount, paidAt string, category domain.PaymentCategory, status domain.PaymentStatus) *domain.Payment {
	t.Helper()

	p := &domain.Payment{
		ID:         uuid.New(),
		ContractID: contractID,
		Code:       code,
		Category:   category,
		Amount:     decimal.RequireFromString(amount),
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	if paidAt != "" {
		d := Date(paidAt)
		p.PaidAt = &d
	}
	_, err := db.Exec(
		`INSERT INTO payments (id, contract_id, code, category, amount, status, paid_at, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8)`,
		p.ID, p.ContractID, p.Code, p.Category, p.Amount, p.Status, p.PaidAt, p.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed payment %s: %v", code, err)
	}
	return p
}

func SeedOverhead(t *testing.T, db *sql.DB, amount, incurredOn string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO overhead_expenses (id, description, amount, incurred_on, created_at)
		VALUES ($1, 'oficina', $2, $3, now())`,
		uuid.New(), decimal.RequireFromString(amount), Date(incurredOn),
	)
	if err != nil {
		t.Fatalf("seed overhead: %v", err)
	}
}
