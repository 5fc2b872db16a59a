package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeMovements map[uuid.UUID][]domain.Movement

func (f fakeMovements) ListByContract(_ context.Context, contractID uuid.UUID) ([]domain.Movement, error) {
	return f[contractID], nil
}

func withTerms(c domain.Contract, amount, advance, gf string) domain.Contract {
	c.Terms = domain.ContractTerms{
		ContractAmount:          dec(amount),
		AdvancePercentage:       dec(advance),
		GuaranteeFundPercentage: dec(gf),
	}
	return c
}

func TestDashboardSummary(t *testing.T) {
	a := withTerms(activeContract("A"), "1000000", "30", "10")
	b := withTerms(activeContract("B"), "500000", "0", "0")
	paused := withTerms(activeContract("P"), "9000000", "0", "0")
	paused.Status = domain.ContractStatusPaused

	movements := fakeMovements{
		a.ID: {
			{Seq: 1, Kind: domain.MovementKindEstimation, Amount: dec("200000"), PaidSoFar: dec("100000"), Date: date("2025-02-03")},
			{Seq: 2, Kind: domain.MovementKindAdditive, Amount: dec("50000"), Date: date("2025-02-10")},
		},
		paused.ID: {
			{Seq: 1, Kind: domain.MovementKindEstimation, Amount: dec("1000"), Date: date("2025-02-03")},
		},
	}
	cancelled := paid(a.ID, "1000", "2025-03-05")
	cancelled.Status = domain.PaymentStatusCancelled
	payments := &fakePayments{byID: map[uuid.UUID][]domain.Payment{
		a.ID:      {paid(a.ID, "200", "2025-03-03"), paid(a.ID, "65", ""), cancelled},
		paused.ID: {paid(paused.ID, "5000", "2025-03-05")},
	}}
	m := metrics.New()
	svc := NewDashboardService(newFakeContracts(a, b, paused), movements, payments, m)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.ActiveContracts)
	assert.True(t, sum.TotalContracted.Equal(dec("1550000")), sum.TotalContracted.String())
	assert.True(t, sum.TotalEstimated.Equal(dec("200000")))
	assert.True(t, sum.TotalPending.Equal(dec("1350000")))
	assert.True(t, sum.TotalPaid.Equal(dec("265")))

	require.Len(t, sum.Contracts, 2)
	ca := sum.Contracts[0]
	assert.Equal(t, "A", ca.Code)
	assert.True(t, ca.ContractAmount.Equal(dec("1000000")))
	assert.True(t, ca.CurrentContractAmount.Equal(dec("1050000")))
	assert.True(t, ca.ContractPending.Equal(dec("850000")))
	assert.True(t, ca.AdvanceBalance.Equal(dec("240000")))
	assert.True(t, ca.GuaranteeFundAccumulated.Equal(dec("20000")))

	cb := sum.Contracts[1]
	assert.True(t, cb.Estimated.IsZero())
	assert.True(t, cb.ContractPending.Equal(dec("500000")))
	assert.True(t, cb.Paid.IsZero())

	assert.Equal(t, float64(2), promtest.ToFloat64(m.LedgerReplays))
}

func TestDashboardSummary_Empty(t *testing.T) {
	svc := NewDashboardService(newFakeContracts(), fakeMovements{}, &fakePayments{}, metrics.New())

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.ActiveContracts)
	assert.True(t, sum.TotalContracted.IsZero())
	assert.Empty(t, sum.Contracts)
}

func TestDashboardSummary_Errors(t *testing.T) {
	a := withTerms(activeContract("A"), "1000", "0", "0")

	t.Run("corrupt log", func(t *testing.T) {
		movements := fakeMovements{a.ID: {
			{Seq: 1, Kind: domain.MovementKindEstimation, Amount: dec("5000"), Date: date("2025-02-03")},
		}}
		svc := NewDashboardService(newFakeContracts(a), movements, &fakePayments{}, metrics.New())
		_, err := svc.Summary(context.Background())

		var merr *ledger.MovementError
		require.ErrorAs(t, err, &merr)
	})

	t.Run("payment total failure", func(t *testing.T) {
		loadErr := errors.New("connection reset")
		svc := NewDashboardService(newFakeContracts(a), fakeMovements{}, &fakePayments{err: loadErr}, metrics.New())
		_, err := svc.Summary(context.Background())
		require.ErrorIs(t, err, loadErr)
	})
}
