package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
)

type contractLister interface {
	List(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error)
}

type movementLister interface {
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Movement, error)
}

type paymentTotaler interface {
	SumByContract(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error)
}

type DashboardService struct {
	contracts contractLister
	movements movementLister
	payments  paymentTotaler
	metrics   *metrics.Metrics
}

func NewDashboardService(
	contracts contractLister,
	movements movementLister,
	payments paymentTotaler,
	m *metrics.Metrics,
) *DashboardService {
	return &DashboardService{
		contracts: contracts,
		movements: movements,
		payments:  payments,
		metrics:   m,
	}
}

type ContractSummary struct {
	ContractID               uuid.UUID
	Code                     string
	Name                     string
	ContractAmount           decimal.Decimal
	CurrentContractAmount    decimal.Decimal
	Estimated                decimal.Decimal
	ContractPending          decimal.Decimal
	AdvanceBalance           decimal.Decimal
	GuaranteeFundAccumulated decimal.Decimal
	// Paid is the contract's direct spend: every payment not cancelled.
	Paid decimal.Decimal
}

type Summary struct {
	ActiveContracts int
	TotalContracted decimal.Decimal
	TotalEstimated  decimal.Decimal
	TotalPending    decimal.Decimal
	TotalPaid       decimal.Decimal
	Contracts       []ContractSummary
}

// Summary totals the active portfolio. Contract figures come from replaying each
// log, so change orders count toward TotalContracted.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	active := domain.ContractStatusActive
	contracts, err := s.contracts.List(ctx, &active)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	rows := make([]ContractSummary, len(contracts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, c := range contracts {
		g.Go(func() error {
			row, err := s.summarize(gctx, c)
			if err != nil {
				return fmt.Errorf("contract %s: %w", c.Code, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	sum := &Summary{
		ActiveContracts: len(rows),
		TotalContracted: decimal.Zero,
		TotalEstimated:  decimal.Zero,
		TotalPending:    decimal.Zero,
		TotalPaid:       decimal.Zero,
		Contracts:       rows,
	}
	for _, r := range rows {
		sum.TotalContracted = sum.TotalContracted.Add(r.CurrentContractAmount)
		sum.TotalEstimated = sum.TotalEstimated.Add(r.Estimated)
		sum.TotalPending = sum.TotalPending.Add(r.ContractPending)
		sum.TotalPaid = sum.TotalPaid.Add(r.Paid)
	}

	logging.FromContext(ctx).Info("dashboard summary computed",
		"active_contracts", sum.ActiveContracts,
		"total_contracted", sum.TotalContracted,
	)
	return sum, nil
}

func (s *DashboardService) summarize(ctx context.Context, c domain.Contract) (ContractSummary, error) {
	stored, err := s.movements.ListByContract(ctx, c.ID)
	if err != nil {
		return ContractSummary{}, err
	}
	res, err := ledger.Replay(c.Terms, stored)
	if err != nil {
		logging.FromContext(ctx).Error("stored log failed replay", "contract_id", c.ID, "error", err)
		return ContractSummary{}, err
	}
	s.metrics.LedgerReplays.Inc()

	paid, err := s.payments.SumByContract(ctx, c.ID)
	if err != nil {
		return ContractSummary{}, err
	}

	return ContractSummary{
		ContractID:               c.ID,
		Code:                     c.Code,
		Name:                     c.Name,
		ContractAmount:           c.Terms.ContractAmount,
		CurrentContractAmount:    res.Final.CurrentContractAmount,
		Estimated:                res.Totals.Estimated,
		ContractPending:          res.Final.ContractPending,
		AdvanceBalance:           res.Final.AdvanceBalance,
		GuaranteeFundAccumulated: res.Final.GuaranteeFundAccumulated,
		Paid:                     paid,
	}, nil
}
