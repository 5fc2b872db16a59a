package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/events"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeContracts struct {
	byID map[uuid.UUID]domain.Contract
	list []domain.Contract
}

func newFakeContracts(cs ...domain.Contract) *fakeContracts {
	f := &fakeContracts{byID: make(map[uuid.UUID]domain.Contract)}
	for _, c := range cs {
		f.byID[c.ID] = c
		f.list = append(f.list, c)
	}
	return f
}

func (f *fakeContracts) GetByID(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (f *fakeContracts) List(_ context.Context, status *domain.ContractStatus) ([]domain.Contract, error) {
	var out []domain.Contract
	for _, c := range f.list {
		if status == nil || c.Status == *status {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakePayments struct {
	mu      sync.Mutex
	created []domain.Payment
	byID    map[uuid.UUID][]domain.Payment
	err     error
}

func (f *fakePayments) Create(_ context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *p)
	return nil
}

func (f *fakePayments) ListByContract(_ context.Context, contractID uuid.UUID, period domain.Period) ([]domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Payment
	for _, p := range f.byID[contractID] {
		d, ok := p.EffectiveDate()
		if !ok || period.Contains(d) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) SumByContract(_ context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	total := decimal.Zero
	for _, p := range f.byID[contractID] {
		if p.Status != domain.PaymentStatusCancelled {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

type fakeOverhead struct {
	created []domain.OverheadExpense
	lines   []domain.OverheadExpense
}

func overheadOf(amounts ...string) *fakeOverhead {
	f := &fakeOverhead{}
	for i, a := range amounts {
		f.lines = append(f.lines, domain.OverheadExpense{
			ID:          uuid.New(),
			Description: "gasto " + a,
			Amount:      dec(a),
			IncurredOn:  date("2025-03-03").AddDate(0, 0, i),
		})
	}
	return f
}

func (f *fakeOverhead) Create(_ context.Context, e *domain.OverheadExpense) error {
	f.created = append(f.created, *e)
	return nil
}

func (f *fakeOverhead) ListBetween(context.Context, domain.Period) ([]domain.OverheadExpense, error) {
	return f.lines, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func activeContract(code string) domain.Contract {
	return domain.Contract{
		ID:     uuid.New(),
		Code:   code,
		Name:   "Obra " + code,
		Status: domain.ContractStatusActive,
	}
}

func paid(contractID uuid.UUID, amount, on string) domain.Payment {
	p := domain.Payment{
		ID:         uuid.New(),
		ContractID: contractID,
		Code:       "OC-" + on,
		Category:   domain.PaymentCategoryPurchaseOrder,
		Amount:     dec(amount),
		Status:     domain.PaymentStatusCompleted,
	}
	if on != "" {
		p.PaidAt = datePtr(on)
	}
	return p
}

func march() domain.Period {
	return domain.Period{From: date("2025-03-03"), To: date("2025-03-17")}
}

func TestRecordPayment(t *testing.T) {
	c := activeContract("A")
	payments := &fakePayments{}
	svc := NewExpenseService(newFakeContracts(c), payments, &fakeOverhead{}, metrics.New())
	ctx := context.Background()

	t.Run("defaults status from paid date", func(t *testing.T) {
		p, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			ContractID: c.ID,
			Code:       "OC-1",
			Category:   domain.PaymentCategoryPayroll,
			Amount:     dec("1500.005"),
			PaidAt:     datePtr("2025-03-04"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
		assert.True(t, p.Amount.Equal(dec("1500.01")))
	})

	t.Run("scheduled without paid date", func(t *testing.T) {
		p, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			ContractID:  c.ID,
			Code:        "OC-2",
			Category:    domain.PaymentCategoryOther,
			Amount:      dec("10"),
			ScheduledAt: datePtr("2025-03-10"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusScheduled, p.Status)
	})

	tests := []struct {
		name    string
		req     RecordPaymentRequest
		wantErr error
	}{
		{
			name:    "zero amount",
			req:     RecordPaymentRequest{ContractID: c.ID, Code: "X", Category: domain.PaymentCategoryOther, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "missing code",
			req:     RecordPaymentRequest{ContractID: c.ID, Category: domain.PaymentCategoryOther, Amount: dec("1")},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown category",
			req:     RecordPaymentRequest{ContractID: c.ID, Code: "X", Category: "fuel", Amount: dec("1")},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown status",
			req:     RecordPaymentRequest{ContractID: c.ID, Code: "X", Category: domain.PaymentCategoryOther, Amount: dec("1"), Status: "lost"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown contract",
			req:     RecordPaymentRequest{ContractID: uuid.New(), Code: "X", Category: domain.PaymentCategoryOther, Amount: dec("1")},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, tc.req)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Len(t, payments.created, 2)
}

func TestRecordOverhead(t *testing.T) {
	overhead := &fakeOverhead{}
	svc := NewExpenseService(newFakeContracts(), &fakePayments{}, overhead, metrics.New())
	ctx := context.Background()

	e, err := svc.RecordOverhead(ctx, RecordOverheadRequest{Description: "renta oficina", Amount: dec("8000"), IncurredOn: date("2025-03-01")})
	require.NoError(t, err)
	assert.Equal(t, "renta oficina", e.Description)
	require.Len(t, overhead.created, 1)

	_, err = svc.RecordOverhead(ctx, RecordOverheadRequest{Description: "x", Amount: dec("-1"), IncurredOn: date("2025-03-01")})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.RecordOverhead(ctx, RecordOverheadRequest{Description: "", Amount: dec("1"), IncurredOn: date("2025-03-01")})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestWeeklyExpenses(t *testing.T) {
	c := activeContract("A")
	payments := &fakePayments{byID: map[uuid.UUID][]domain.Payment{
		c.ID: {
			paid(c.ID, "100", "2025-03-03"),
			paid(c.ID, "50", "2025-03-09"),
			paid(c.ID, "25", "2025-03-12"),
			paid(c.ID, "99", ""),
		},
	}}
	m := metrics.New()
	svc := NewExpenseService(newFakeContracts(c), payments, &fakeOverhead{}, m)
	ctx := context.Background()

	res, err := svc.WeeklyExpenses(ctx, c.ID, march(), false)
	require.NoError(t, err)
	require.Len(t, res.Buckets, 2)
	assert.True(t, res.Buckets[0].DirectTotal.Equal(dec("150")))
	assert.True(t, res.Buckets[1].DirectTotal.Equal(dec("25")))
	assert.True(t, res.Total.Equal(dec("175")))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.PaymentsSkipped))

	_, err = svc.WeeklyExpenses(ctx, uuid.New(), march(), false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.WeeklyExpenses(ctx, c.ID, domain.Period{From: date("2025-03-10"), To: date("2025-03-03")}, false)
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestDistribution(t *testing.T) {
	a := activeContract("A")
	b := activeContract("B")
	paused := activeContract("P")
	paused.Status = domain.ContractStatusPaused

	payments := &fakePayments{byID: map[uuid.UUID][]domain.Payment{
		a.ID: {
			paid(a.ID, "100", "2025-03-03"),
			paid(a.ID, "200", "2025-03-11"),
		},
		b.ID: {
			paid(b.ID, "700", "2025-03-05"),
		},
		paused.ID: {
			paid(paused.ID, "5000", "2025-03-05"),
		},
	}}
	m := metrics.New()
	svc := NewExpenseService(newFakeContracts(a, b, paused), payments, overheadOf("600", "400"), m)

	d, err := svc.Distribution(context.Background(), march(), nil)
	require.NoError(t, err)

	assert.True(t, d.Pool.Equal(dec("1000")))
	assert.False(t, d.PoolOverridden)
	require.Len(t, d.Overhead, 2)
	assert.True(t, d.Overhead[0].Amount.Equal(dec("600")))
	assert.True(t, d.TotalDirect.Equal(dec("1000")))
	assert.True(t, d.TotalIndirect.Equal(dec("1000")))
	assert.False(t, d.Degenerate)
	require.Len(t, d.Contracts, 2)

	ca := d.Contracts[0]
	assert.Equal(t, "A", ca.Code)
	assert.True(t, ca.Indirect.Equal(dec("300")))
	assert.True(t, ca.Total.Equal(dec("600")))
	require.Len(t, ca.Weeks, 2)
	assert.True(t, ca.Weeks[0].IndirectAllocated.Equal(dec("100")))
	assert.True(t, ca.Weeks[1].IndirectAllocated.Equal(dec("200")))

	cb := d.Contracts[1]
	assert.True(t, cb.Indirect.Equal(dec("700")))
	assert.True(t, cb.Proportion.Equal(dec("0.7")))

	assert.Equal(t, float64(1), promtest.ToFloat64(m.AllocationsComputed))
	assert.Equal(t, 0, promtest.CollectAndCount(m.EventsPublished))
}

func TestDistribution_PoolOverride(t *testing.T) {
	a := activeContract("A")
	b := activeContract("B")
	c := activeContract("C")
	payments := &fakePayments{byID: map[uuid.UUID][]domain.Payment{
		a.ID: {paid(a.ID, "1", "2025-03-04")},
		b.ID: {paid(b.ID, "1", "2025-03-04")},
		c.ID: {paid(c.ID, "1", "2025-03-04")},
	}}
	svc := NewExpenseService(newFakeContracts(a, b, c), payments, overheadOf("999"), metrics.New())

	pool := dec("100")
	d, err := svc.Distribution(context.Background(), march(), &pool)
	require.NoError(t, err)

	assert.True(t, d.PoolOverridden)
	assert.Empty(t, d.Overhead)
	got := []string{d.Contracts[0].Indirect.String(), d.Contracts[1].Indirect.String(), d.Contracts[2].Indirect.String()}
	assert.Equal(t, []string{"33.34", "33.33", "33.33"}, got)
	assert.True(t, d.TotalIndirect.Equal(pool))
}

func TestDistribution_NoDirectSpend(t *testing.T) {
	a := activeContract("A")
	m := metrics.New()
	svc := NewExpenseService(newFakeContracts(a), &fakePayments{}, overheadOf("500"), m)

	d, err := svc.Distribution(context.Background(), march(), nil)
	require.NoError(t, err)

	assert.True(t, d.Degenerate)
	assert.True(t, d.TotalIndirect.IsZero())
	assert.True(t, d.Contracts[0].Indirect.IsZero())
	assert.Equal(t, float64(1), promtest.ToFloat64(m.DegenerateAllocations))
}

func TestDistribution_Errors(t *testing.T) {
	a := activeContract("A")
	ctx := context.Background()

	t.Run("negative pool", func(t *testing.T) {
		svc := NewExpenseService(newFakeContracts(a), &fakePayments{}, &fakeOverhead{}, metrics.New())
		pool := dec("-1")
		_, err := svc.Distribution(ctx, march(), &pool)
		require.ErrorIs(t, err, domain.ErrInvalidAllocation)
	})

	t.Run("invalid period", func(t *testing.T) {
		svc := NewExpenseService(newFakeContracts(a), &fakePayments{}, &fakeOverhead{}, metrics.New())
		_, err := svc.Distribution(ctx, domain.Period{}, nil)
		require.ErrorIs(t, err, domain.ErrInvalidPeriod)
	})

	t.Run("payment load failure", func(t *testing.T) {
		loadErr := errors.New("connection reset")
		svc := NewExpenseService(newFakeContracts(a), &fakePayments{err: loadErr}, &fakeOverhead{}, metrics.New())
		_, err := svc.Distribution(ctx, march(), nil)
		require.ErrorIs(t, err, loadErr)
	})
}

func TestDistribution_SingleContractIsReadOnly(t *testing.T) {
	a := activeContract("A")
	payments := &fakePayments{byID: map[uuid.UUID][]domain.Payment{a.ID: {paid(a.ID, "10", "2025-03-04")}}}
	m := metrics.New()
	svc := NewExpenseService(newFakeContracts(a), payments, overheadOf("5"), m)

	for range 2 {
		d, err := svc.Distribution(context.Background(), march(), nil)
		require.NoError(t, err)
		assert.True(t, d.SingleContract)
		assert.True(t, d.Contracts[0].Indirect.Equal(dec("5")))
	}
	assert.Equal(t, 0, promtest.CollectAndCount(m.EventsPublished))
	assert.Equal(t, float64(2), promtest.ToFloat64(m.AllocationsComputed))
}
