package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/repository"
	"github.com/josh-kwaku/obras-ledger/internal/testutil"
)

func TestContractRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewContractRepository(db)
	ctx := context.Background()

	start := testutil.Date("2025-01-06")
	c := &domain.Contract{
		ID:             uuid.New(),
		Code:           "OB-001",
		Name:           "Escuela primaria",
		Client:         "Municipio",
		ContractNumber: "LP-2025-01",
		Terms:          testutil.Terms("1000000", "30", "10"),
		StartDate:      &start,
		Status:         domain.ContractStatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "OB-001", got.Code)
	assert.True(t, got.Terms.ContractAmount.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, got.Terms.AdvancePercentage.Equal(decimal.NewFromInt(30)))
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2025-01-06", got.StartDate.Format(time.DateOnly))
	assert.Nil(t, got.EstimatedEndDate)

	dup := *c
	dup.ID = uuid.New()
	require.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrContractExists)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	testutil.SeedContract(t, db, "OB-002", testutil.Terms("500", "0", "0"), domain.ContractStatusFinished)

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := domain.ContractStatusActive
	onlyActive, err := repo.List(ctx, &active)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, c.ID, onlyActive[0].ID)
}

func TestContractRepository_PercentagePrecision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewContractRepository(db)
	ctx := context.Background()

	c := testutil.SeedContract(t, db, "OB-PCT", testutil.Terms("1000000", "33.333", "5.555"), domain.ContractStatusActive)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "33.33", got.Terms.AdvancePercentage.String())
	assert.Equal(t, "5.56", got.Terms.GuaranteeFundPercentage.String())
	assert.True(t, got.Terms.AdvancePercentage.Equal(domain.RoundPercentage(c.Terms.AdvancePercentage)))
	assert.True(t, got.Terms.GuaranteeFundPercentage.Equal(domain.RoundPercentage(c.Terms.GuaranteeFundPercentage)))
}

func TestMovementRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	contracts := repository.NewContractRepository(db)
	movements := repository.NewMovementRepository(db)
	ctx := context.Background()

	c := testutil.SeedContract(t, db, "OB-010", testutil.Terms("1000000", "30", "10"), domain.ContractStatusActive)

	newMovement := func(seq int64, kind domain.MovementKind, amount string) *domain.Movement {
		return &domain.Movement{
			ID:         uuid.New(),
			ContractID: c.ID,
			Seq:        seq,
			Kind:       kind,
			Amount:     decimal.RequireFromString(amount),
			Date:       testutil.Date("2025-02-03").AddDate(0, 0, int(seq)),
			PaidSoFar:  decimal.Zero,
			CreatedAt:  time.Now().UTC(),
		}
	}

	err := repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		locked, err := contracts.GetForUpdate(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, c.ID, locked.ID)

		if err := movements.Create(ctx, tx, newMovement(2, domain.MovementKindAdditive, "100000")); err != nil {
			return err
		}
		if err := movements.Create(ctx, tx, newMovement(1, domain.MovementKindEstimation, "200000.50")); err != nil {
			return err
		}

		inTx, err := movements.ListByContractTx(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		assert.Len(t, inTx, 2)
		return nil
	})
	require.NoError(t, err)

	log, err := movements.ListByContract(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, int64(1), log[0].Seq)
	assert.Equal(t, domain.MovementKindEstimation, log[0].Kind)
	assert.True(t, log[0].Amount.Equal(decimal.RequireFromString("200000.50")))
	assert.Equal(t, int64(2), log[1].Seq)

	err = repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		return movements.Create(ctx, tx, newMovement(2, domain.MovementKindAdditive, "1"))
	})
	require.ErrorIs(t, err, domain.ErrInvalidMovement)
}

func TestPaymentRepository_ListByContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	c := testutil.SeedContract(t, db, "OB-020", testutil.Terms("1000", "0", "0"), domain.ContractStatusActive)
	other := testutil.SeedContract(t, db, "OB-021", testutil.Terms("1000", "0", "0"), domain.ContractStatusActive)

	testutil.SeedPayment(t, db, c.ID, "P1", "100", "2025-01-06", domain.PaymentCategoryPurchaseOrder, domain.PaymentStatusCompleted)
	testutil.SeedPayment(t, db, c.ID, "P2", "50", "2025-01-12", domain.PaymentCategoryPayroll, domain.PaymentStatusProcessed)
	testutil.SeedPayment(t, db, c.ID, "P3", "70", "2025-01-08", domain.PaymentCategoryOther, domain.PaymentStatusCancelled)
	testutil.SeedPayment(t, db, c.ID, "P4", "80", "2025-03-01", domain.PaymentCategoryOther, domain.PaymentStatusCompleted)
	testutil.SeedPayment(t, db, c.ID, "P5", "5", "", domain.PaymentCategoryOther, domain.PaymentStatusScheduled)
	testutil.SeedPayment(t, db, other.ID, "X1", "999", "2025-01-07", domain.PaymentCategoryOther, domain.PaymentStatusCompleted)

	scheduled := testutil.Date("2025-01-20")
	require.NoError(t, repo.Create(ctx, &domain.Payment{
		ID:          uuid.New(),
		ContractID:  c.ID,
		Code:        "P6",
		Category:    domain.PaymentCategoryPayroll,
		Amount:      decimal.NewFromInt(30),
		Status:      domain.PaymentStatusScheduled,
		ScheduledAt: &scheduled,
		CreatedAt:   time.Now().UTC(),
	}))

	got, err := repo.ListByContract(ctx, c.ID, domain.Period{
		From: testutil.Date("2025-01-01"),
		To:   testutil.Date("2025-02-01"),
	})
	require.NoError(t, err)

	codes := make([]string, len(got))
	for i, p := range got {
		codes[i] = p.Code
	}
	assert.Equal(t, []string{"P1", "P2", "P6", "P5"}, codes)

	total, err := repo.SumByContract(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(265)), "got %s", total)

	none, err := repo.SumByContract(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestOverheadRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewOverheadRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.OverheadExpense{
		ID:          uuid.New(),
		Description: "renta oficina",
		Amount:      decimal.RequireFromString("600.25"),
		IncurredOn:  testutil.Date("2025-01-10"),
		CreatedAt:   time.Now().UTC(),
	}))
	testutil.SeedOverhead(t, db, "399.75", "2025-01-31")
	testutil.SeedOverhead(t, db, "1000", "2025-02-01")

	jan := domain.Period{From: testutil.Date("2025-01-01"), To: testutil.Date("2025-02-01")}

	list, err := repo.ListBetween(ctx, jan)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "renta oficina", list[0].Description)
	assert.Equal(t, "2025-01-31", list[1].IncurredOn.Format(time.DateOnly))
	assert.True(t, list[0].Amount.Add(list[1].Amount).Equal(decimal.NewFromInt(1000)))

	empty, err := repo.ListBetween(ctx, domain.Period{From: testutil.Date("2024-01-01"), To: testutil.Date("2024-02-01")})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestIdempotencyRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	entry := &repository.IdempotencyCacheEntry{
		Key:          "k-1",
		Subject:      "office",
		RequestHash:  "abc",
		StatusCode:   201,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
	require.NoError(t, repo.Set(ctx, entry))

	got, err := repo.Get(ctx, "k-1", "office")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(got.ResponseBody))

	miss, err := repo.Get(ctx, "k-1", "someone-else")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, repo.Set(ctx, &repository.IdempotencyCacheEntry{
		Key: "old", Subject: "office", RequestHash: "x", StatusCode: 200,
		ResponseBody: []byte(`{}`), CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	n, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
