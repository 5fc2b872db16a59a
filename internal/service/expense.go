package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/obras-ledger/internal/allocation"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

const loadConcurrency = 8

type contractReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	List(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error)
}

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByContract(ctx context.Context, contractID uuid.UUID, period domain.Period) ([]domain.Payment, error)
}

type overheadRepo interface {
	Create(ctx context.Context, e *domain.OverheadExpense) error
	ListBetween(ctx context.Context, period domain.Period) ([]domain.OverheadExpense, error)
}

type ExpenseService struct {
	contracts contractReader
	payments  paymentRepo
	overhead  overheadRepo
	metrics   *metrics.Metrics
}

func NewExpenseService(
	contracts contractReader,
	payments paymentRepo,
	overhead overheadRepo,
	m *metrics.Metrics,
) *ExpenseService {
	return &ExpenseService{
		contracts: contracts,
		payments:  payments,
		overhead:  overhead,
		metrics:   m,
	}
}

type RecordPaymentRequest struct {
	ContractID  uuid.UUID
	Code        string
	Category    domain.PaymentCategory
	Amount      decimal.Decimal
	Status      domain.PaymentStatus
	PaidAt      *time.Time
	ScheduledAt *time.Time
	Reference   string
}

func (s *ExpenseService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*domain.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("RecordPayment: %w", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("RecordPayment: code is required: %w", domain.ErrInvalidRequest)
	}
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("RecordPayment: category %q: %w", req.Category, domain.ErrInvalidRequest)
	}

	status := req.Status
	if status == "" {
		status = domain.PaymentStatusScheduled
		if req.PaidAt != nil {
			status = domain.PaymentStatusCompleted
		}
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("RecordPayment: status %q: %w", status, domain.ErrInvalidRequest)
	}

	if _, err := s.contracts.GetByID(ctx, req.ContractID); err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	p := &domain.Payment{
		ID:          uuid.New(),
		ContractID:  req.ContractID,
		Code:        strings.TrimSpace(req.Code),
		Category:    req.Category,
		Amount:      domain.RoundCurrency(req.Amount),
		Status:      status,
		PaidAt:      req.PaidAt,
		ScheduledAt: req.ScheduledAt,
		Reference:   req.Reference,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	logging.FromContext(ctx).Info("payment recorded",
		"payment_id", p.ID,
		"contract_id", p.ContractID,
		"category", p.Category,
		"amount", p.Amount,
	)
	return p, nil
}

// WeeklyExpenses buckets a contract's payments in period into Monday-start weeks.
func (s *ExpenseService) WeeklyExpenses(ctx context.Context, contractID uuid.UUID, period domain.Period, dense bool) (*weekly.Result, error) {
	if err := period.Validate(); err != nil {
		return nil, fmt.Errorf("WeeklyExpenses: %w", err)
	}
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		return nil, fmt.Errorf("WeeklyExpenses: %w", err)
	}

	res, err := s.aggregate(ctx, contractID, period, dense)
	if err != nil {
		return nil, fmt.Errorf("WeeklyExpenses: %w", err)
	}
	return res, nil
}

func (s *ExpenseService) aggregate(ctx context.Context, contractID uuid.UUID, period domain.Period, dense bool) (*weekly.Result, error) {
	payments, err := s.payments.ListByContract(ctx, contractID, period)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	res := weekly.Aggregate(weekly.FromPayments(payments), weekly.Options{
		Dense: dense,
		From:  period.From,
		To:    period.To,
	})

	if n := len(res.Skipped); n > 0 {
		s.metrics.PaymentsSkipped.Add(float64(n))
		logging.FromContext(ctx).Warn("payments without usable date skipped",
			"contract_id", contractID,
			"skipped", n,
		)
	}
	return &res, nil
}

type RecordOverheadRequest struct {
	Description string
	Amount      decimal.Decimal
	IncurredOn  time.Time
}

func (s *ExpenseService) RecordOverhead(ctx context.Context, req RecordOverheadRequest) (*domain.OverheadExpense, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("RecordOverhead: %w", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(req.Description) == "" || req.IncurredOn.IsZero() {
		return nil, fmt.Errorf("RecordOverhead: description and date are required: %w", domain.ErrInvalidRequest)
	}

	e := &domain.OverheadExpense{
		ID:          uuid.New(),
		Description: strings.TrimSpace(req.Description),
		Amount:      domain.RoundCurrency(req.Amount),
		IncurredOn:  req.IncurredOn,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.overhead.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("RecordOverhead: %w", err)
	}

	logging.FromContext(ctx).Info("overhead recorded", "overhead_id", e.ID, "amount", e.Amount)
	return e, nil
}

type ContractDistribution struct {
	ContractID uuid.UUID
	Code       string
	Name       string
	Direct     decimal.Decimal
	Proportion decimal.Decimal
	Indirect   decimal.Decimal
	Total      decimal.Decimal
	Weeks      []weekly.Bucket
	Skipped    []weekly.Skip
}

type Distribution struct {
	Period         domain.Period
	Pool           decimal.Decimal
	PoolOverridden bool
	TotalDirect    decimal.Decimal
	TotalIndirect  decimal.Decimal
	Degenerate     bool
	SingleContract bool
	Contracts      []ContractDistribution
	// Overhead lists the expenses behind Pool; empty when the pool was overridden.
	Overhead       []domain.OverheadExpense
}

// Distribution spreads the period's overhead pool over the active contracts by
// their direct spend, then over each contract's weeks. A nil pool uses the
// overhead recorded in the period. It is read-only: nothing is stored or published.
func (s *ExpenseService) Distribution(ctx context.Context, period domain.Period, pool *decimal.Decimal) (*Distribution, error) {
	log := logging.FromContext(ctx)

	if err := period.Validate(); err != nil {
		return nil, fmt.Errorf("Distribution: %w", err)
	}
	if pool != nil && pool.IsNegative() {
		return nil, fmt.Errorf("Distribution: negative pool: %w", domain.ErrInvalidAllocation)
	}

	active := domain.ContractStatusActive
	contracts, err := s.contracts.List(ctx, &active)
	if err != nil {
		return nil, fmt.Errorf("Distribution: %w", err)
	}

	var lines []domain.OverheadExpense
	overheadPool := decimal.Zero
	if pool != nil {
		overheadPool = *pool
	} else {
		lines, err = s.overhead.ListBetween(ctx, period)
		if err != nil {
			return nil, fmt.Errorf("Distribution: %w", err)
		}
		for _, e := range lines {
			overheadPool = overheadPool.Add(e.Amount)
		}
	}

	weeks := make([]*weekly.Result, len(contracts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, c := range contracts {
		g.Go(func() error {
			res, err := s.aggregate(gctx, c.ID, period, false)
			if err != nil {
				return fmt.Errorf("contract %s: %w", c.Code, err)
			}
			weeks[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Distribution: %w", err)
	}

	shares := make([]allocation.Share, len(contracts))
	for i, c := range contracts {
		shares[i] = allocation.Share{ContractID: c.ID, Direct: weeks[i].Total}
	}

	alloc, err := allocation.Allocate(shares, overheadPool)
	if err != nil {
		return nil, fmt.Errorf("Distribution: %w", err)
	}

	d := &Distribution{
		Period:         period,
		Pool:           alloc.Pool,
		PoolOverridden: pool != nil,
		TotalDirect:    alloc.TotalDirect,
		TotalIndirect:  decimal.Zero,
		Degenerate:     alloc.Degenerate,
		SingleContract: alloc.SingleContract,
		Contracts:      make([]ContractDistribution, len(contracts)),
		Overhead:       lines,
	}

	for i, c := range contracts {
		a := alloc.Allocations[i]
		buckets, err := allocation.AllocateWeekly(weeks[i].Buckets, a.Allocated)
		if err != nil {
			return nil, fmt.Errorf("Distribution: contract %s: %w", c.Code, err)
		}
		d.Contracts[i] = ContractDistribution{
			ContractID: c.ID,
			Code:       c.Code,
			Name:       c.Name,
			Direct:     a.Direct,
			Proportion: a.Proportion,
			Indirect:   a.Allocated,
			Total:      a.Direct.Add(a.Allocated),
			Weeks:      buckets,
			Skipped:    weeks[i].Skipped,
		}
		d.TotalIndirect = d.TotalIndirect.Add(a.Allocated)
	}

	s.metrics.AllocationsComputed.Inc()
	if d.Degenerate {
		s.metrics.DegenerateAllocations.Inc()
		log.Warn("no direct spend in period, overhead left unallocated",
			"from", period.From.Format(time.DateOnly),
			"to", period.To.Format(time.DateOnly),
			"pool", d.Pool,
		)
	}

	log.Info("distribution computed",
		"from", period.From.Format(time.DateOnly),
		"to", period.To.Format(time.DateOnly),
		"contracts", len(d.Contracts),
		"pool", d.Pool,
		"total_direct", d.TotalDirect,
	)

	return d, nil
}
