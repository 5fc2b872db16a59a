// Package allocation distributes a shared overhead pool across contracts in
// proportion to their direct spend.
//
// Amounts are split in cents with the largest-remainder method, so the parts always
// add up to the rounded pool.
package allocation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
	"github.com/shopspring/decimal"
)

type Share struct {
	ContractID uuid.UUID
	Direct     decimal.Decimal
}

type Allocation struct {
	ContractID uuid.UUID
	Direct     decimal.Decimal
	Proportion decimal.Decimal
	Allocated  decimal.Decimal
}

type Result struct {
	Pool        decimal.Decimal
	TotalDirect decimal.Decimal
	Allocations []Allocation
	// Degenerate is set when no contract has direct spend; every allocation is zero.
	Degenerate bool
	// SingleContract is set when one contract absorbs the whole pool.
	SingleContract bool
}

func Allocate(shares []Share, pool decimal.Decimal) (*Result, error) {
	if pool.IsNegative() {
		return nil, fmt.Errorf("Allocate: negative pool: %w", domain.ErrInvalidAllocation)
	}

	seen := make(map[uuid.UUID]struct{}, len(shares))
	total := decimal.Zero
	for _, s := range shares {
		if s.Direct.IsNegative() {
			return nil, fmt.Errorf("Allocate: contract %s has negative direct total: %w", s.ContractID, domain.ErrInvalidAllocation)
		}
		if _, dup := seen[s.ContractID]; dup {
			return nil, fmt.Errorf("Allocate: contract %s listed twice: %w", s.ContractID, domain.ErrInvalidAllocation)
		}
		seen[s.ContractID] = struct{}{}
		total = total.Add(s.Direct)
	}

	res := &Result{
		Pool:           domain.RoundCurrency(pool),
		TotalDirect:    total,
		Allocations:    make([]Allocation, len(shares)),
		Degenerate:     total.IsZero(),
		SingleContract: len(shares) == 1,
	}

	if res.Degenerate {
		for i, s := range shares {
			res.Allocations[i] = Allocation{
				ContractID: s.ContractID,
				Direct:     s.Direct,
				Proportion: decimal.Zero,
				Allocated:  decimal.Zero,
			}
		}
		return res, nil
	}

	weights := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		weights[i] = s.Direct
	}
	parts := split(weights, total, res.Pool)

	for i, s := range shares {
		res.Allocations[i] = Allocation{
			ContractID: s.ContractID,
			Direct:     s.Direct,
			Proportion: s.Direct.Div(total),
			Allocated:  parts[i],
		}
	}
	return res, nil
}

// AllocateWeekly spreads one contract's allocated amount across its weeks by each
// week's direct total. It returns new buckets; the input is left as is.
func AllocateWeekly(buckets []weekly.Bucket, allocated decimal.Decimal) ([]weekly.Bucket, error) {
	if allocated.IsNegative() {
		return nil, fmt.Errorf("AllocateWeekly: negative amount: %w", domain.ErrInvalidAllocation)
	}

	out := make([]weekly.Bucket, len(buckets))
	copy(out, buckets)

	total := decimal.Zero
	weights := make([]decimal.Decimal, len(out))
	for i, b := range out {
		if b.DirectTotal.IsNegative() {
			return nil, fmt.Errorf("AllocateWeekly: week %s has negative direct total: %w",
				b.WeekStart.Format("2006-01-02"), domain.ErrInvalidAllocation)
		}
		weights[i] = b.DirectTotal
		total = total.Add(b.DirectTotal)
	}

	amount := domain.RoundCurrency(allocated)
	if total.IsZero() {
		if !amount.IsZero() {
			return nil, fmt.Errorf("AllocateWeekly: no direct spend to carry %s: %w", amount, domain.ErrInvalidAllocation)
		}
		for i := range out {
			out[i].IndirectAllocated = decimal.Zero
		}
		return out, nil
	}

	parts := split(weights, total, amount)
	for i := range out {
		out[i].IndirectAllocated = parts[i]
	}
	return out, nil
}

// split divides amount (already in currency precision) by weights/total. Each
// part gets its floor in cents; the leftover cents go to the largest remainders,
// earlier entries first on ties.
func split(weights []decimal.Decimal, total, amount decimal.Decimal) []decimal.Decimal {
	cents := amount.Shift(domain.CurrencyPlaces)

	type rem struct {
		idx int
		r   decimal.Decimal
	}
	floors := make([]decimal.Decimal, len(weights))
	rems := make([]rem, len(weights))
	assigned := decimal.Zero

	for i, w := range weights {
		q, r := cents.Mul(w).QuoRem(total, 0)
		floors[i] = q
		rems[i] = rem{idx: i, r: r}
		assigned = assigned.Add(q)
	}

	sort.SliceStable(rems, func(i, j int) bool { return rems[i].r.GreaterThan(rems[j].r) })

	leftover := cents.Sub(assigned).IntPart()
	for k := int64(0); k < leftover; k++ {
		i := rems[k].idx
		floors[i] = floors[i].Add(decimal.NewFromInt(1))
	}

	parts := make([]decimal.Decimal, len(weights))
	for i, f := range floors {
		parts[i] = f.Shift(-domain.CurrencyPlaces)
	}
	return parts
}
