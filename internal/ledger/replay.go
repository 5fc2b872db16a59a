package ledger

import (
	"fmt"
	"sort"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Replay applies movements in Seq order starting from the initial state of terms.
// The first invalid movement aborts the replay with a *MovementError.
func Replay(terms domain.ContractTerms, movements []domain.Movement) (*Result, error) {
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("Replay: %w", err)
	}

	ordered := make([]domain.Movement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	initial := InitialState(terms)
	res := &Result{
		Terms:   terms,
		Initial: initial,
		Final:   initial,
		Entries: make([]Entry, 0, len(ordered)),
	}

	state := initial
	for i, m := range ordered {
		if i > 0 && m.Seq == ordered[i-1].Seq {
			return nil, fmt.Errorf("Replay: %w", reject(m, ReasonDuplicateSequence))
		}

		entry, err := apply(terms, state, m)
		if err != nil {
			return nil, fmt.Errorf("Replay: %w", err)
		}

		state = entry.State
		res.Entries = append(res.Entries, entry)
		res.Warnings = append(res.Warnings, entry.Warnings...)
		res.Totals.add(entry)
	}
	res.Final = state

	return res, nil
}

// Append validates candidate against the existing log by replaying log+candidate.
// A zero candidate Seq is assigned the next sequence number. On error nothing about
// the log changes; the caller persists the candidate only on success.
func Append(terms domain.ContractTerms, log []domain.Movement, candidate domain.Movement) (*Entry, *Result, error) {
	last := lastSeq(log)
	if candidate.Seq == 0 {
		candidate.Seq = last + 1
	} else if candidate.Seq <= last {
		return nil, nil, fmt.Errorf("Append: %w", reject(candidate, ReasonOutOfOrder))
	}

	combined := make([]domain.Movement, 0, len(log)+1)
	combined = append(combined, log...)
	combined = append(combined, candidate)

	res, err := Replay(terms, combined)
	if err != nil {
		return nil, nil, fmt.Errorf("Append: %w", err)
	}

	entry := res.Entries[len(res.Entries)-1]
	return &entry, res, nil
}

func lastSeq(log []domain.Movement) int64 {
	var last int64
	for _, m := range log {
		if m.Seq > last {
			last = m.Seq
		}
	}
	return last
}

func apply(terms domain.ContractTerms, prev State, m domain.Movement) (Entry, error) {
	if !m.Kind.IsValid() {
		return Entry{}, reject(m, ReasonUnknownKind)
	}
	if m.Date.IsZero() {
		return Entry{}, reject(m, ReasonMissingDate)
	}

	if m.Kind.IsChangeOrder() {
		return applyChangeOrder(prev, m)
	}
	return applyEstimation(terms, prev, m)
}

func applyEstimation(terms domain.ContractTerms, prev State, m domain.Movement) (Entry, error) {
	amount := m.Amount
	if !amount.IsPositive() {
		return Entry{}, reject(m, ReasonNonPositiveAmount)
	}
	if m.PaidSoFar.IsNegative() {
		return Entry{}, reject(m, ReasonNegativePaid)
	}
	if amount.GreaterThan(prev.ContractPending) {
		return Entry{}, reject(m, ReasonContractOverdrawn)
	}

	entry := Entry{Movement: m}

	// Amortization follows the estimation's share of the current contract value,
	// not a flat percentage of the estimation.
	raw := decimal.Zero
	if prev.CurrentContractAmount.IsPositive() {
		raw = domain.RoundCurrency(amount.Mul(terms.InitialAdvance()).Div(prev.CurrentContractAmount))
	}
	entry.AdvanceAmortization = raw
	if raw.GreaterThan(prev.AdvanceBalance) {
		entry.AdvanceAmortization = prev.AdvanceBalance
		entry.Warnings = append(entry.Warnings, Warning{
			Seq:       m.Seq,
			Code:      WarningAdvanceFullyAmortized,
			Requested: raw,
			Applied:   prev.AdvanceBalance,
		})
	}

	requested := domain.PercentOf(amount, terms.GuaranteeFundPercentage)
	remaining := terms.GuaranteeFundCap().Sub(prev.GuaranteeFundAccumulated)
	entry.GuaranteeFundWithheld = requested
	if requested.GreaterThan(remaining) {
		entry.GuaranteeFundWithheld = remaining
		entry.Warnings = append(entry.Warnings, Warning{
			Seq:       m.Seq,
			Code:      WarningGuaranteeFundCapReached,
			Requested: requested,
			Applied:   remaining,
		})
	}

	entry.Net = amount.Sub(entry.AdvanceAmortization).Sub(entry.GuaranteeFundWithheld)
	if m.PaidSoFar.GreaterThan(entry.Net) {
		return Entry{}, reject(m, ReasonOverpaid)
	}
	entry.BalanceToPay = entry.Net.Sub(m.PaidSoFar)

	entry.State = State{
		CurrentContractAmount:    prev.CurrentContractAmount,
		ContractPending:          prev.ContractPending.Sub(amount),
		AdvanceBalance:           prev.AdvanceBalance.Sub(entry.AdvanceAmortization),
		GuaranteeFundAccumulated: prev.GuaranteeFundAccumulated.Add(entry.GuaranteeFundWithheld),
	}
	return entry, nil
}

func applyChangeOrder(prev State, m domain.Movement) (Entry, error) {
	if !m.PaidSoFar.IsZero() {
		return Entry{}, reject(m, ReasonUnexpectedField)
	}

	next := prev
	switch m.Kind {
	case domain.MovementKindAdditive:
		if !m.Amount.IsPositive() {
			return Entry{}, reject(m, ReasonNonPositiveAmount)
		}
		next.ContractPending = prev.ContractPending.Add(m.Amount)
		next.CurrentContractAmount = prev.CurrentContractAmount.Add(m.Amount)
	case domain.MovementKindDeductive:
		mag := m.Magnitude()
		if mag.IsZero() {
			return Entry{}, reject(m, ReasonNonPositiveAmount)
		}
		next.CurrentContractAmount = prev.CurrentContractAmount.Sub(mag)
		if next.CurrentContractAmount.IsNegative() {
			return Entry{}, reject(m, ReasonNegativeContract)
		}
		next.ContractPending = prev.ContractPending.Sub(mag)
		if next.ContractPending.IsNegative() {
			return Entry{}, reject(m, ReasonContractOverdrawn)
		}
	}

	return Entry{
		Movement:              m,
		AdvanceAmortization:   decimal.Zero,
		GuaranteeFundWithheld: decimal.Zero,
		Net:                   decimal.Zero,
		BalanceToPay:          decimal.Zero,
		State:                 next,
	}, nil
}

func (t *Totals) add(e Entry) {
	switch e.Movement.Kind {
	case domain.MovementKindEstimation:
		t.Estimated = t.Estimated.Add(e.Movement.Amount)
		t.AdvanceAmortization = t.AdvanceAmortization.Add(e.AdvanceAmortization)
		t.GuaranteeFundWithheld = t.GuaranteeFundWithheld.Add(e.GuaranteeFundWithheld)
		t.Net = t.Net.Add(e.Net)
		t.Paid = t.Paid.Add(e.Movement.PaidSoFar)
		t.BalanceToPay = t.BalanceToPay.Add(e.BalanceToPay)
	case domain.MovementKindAdditive:
		t.Additive = t.Additive.Add(e.Movement.Amount)
	case domain.MovementKindDeductive:
		t.Deductive = t.Deductive.Add(e.Movement.Magnitude())
	}
}
