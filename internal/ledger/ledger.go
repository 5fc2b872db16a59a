// Package ledger replays a contract's movement log into running balances.
//
// Nothing here is stored: the state is a projection of (terms, movements) and is
// recomputed whenever it is needed. Replay is a pure function; it neither mutates
// its input nor keeps package-level state.
package ledger

import (
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// State is the contract position after a movement has been applied.
type State struct {
	CurrentContractAmount    decimal.Decimal
	ContractPending          decimal.Decimal
	AdvanceBalance           decimal.Decimal
	GuaranteeFundAccumulated decimal.Decimal
}

func InitialState(terms domain.ContractTerms) State {
	return State{
		CurrentContractAmount:    terms.ContractAmount,
		ContractPending:          terms.ContractAmount,
		AdvanceBalance:           terms.InitialAdvance(),
		GuaranteeFundAccumulated: decimal.Zero,
	}
}

func (s State) Equal(o State) bool {
	return s.CurrentContractAmount.Equal(o.CurrentContractAmount) &&
		s.ContractPending.Equal(o.ContractPending) &&
		s.AdvanceBalance.Equal(o.AdvanceBalance) &&
		s.GuaranteeFundAccumulated.Equal(o.GuaranteeFundAccumulated)
}

type WarningCode string

const (
	WarningAdvanceFullyAmortized   WarningCode = "advance_fully_amortized"
	WarningGuaranteeFundCapReached WarningCode = "guarantee_fund_cap_reached"
)

// Warning reports a clamped amortization or withholding. The movement is still
// applied with the Applied value.
type Warning struct {
	Seq       int64
	Code      WarningCode
	Requested decimal.Decimal
	Applied   decimal.Decimal
}

// Entry is one row of the contract history.
type Entry struct {
	Movement              domain.Movement
	AdvanceAmortization   decimal.Decimal
	GuaranteeFundWithheld decimal.Decimal
	Net                   decimal.Decimal
	BalanceToPay          decimal.Decimal
	State                 State
	Warnings              []Warning
}

type Totals struct {
	Estimated             decimal.Decimal
	AdvanceAmortization   decimal.Decimal
	GuaranteeFundWithheld decimal.Decimal
	Net                   decimal.Decimal
	Paid                  decimal.Decimal
	BalanceToPay          decimal.Decimal
	Additive              decimal.Decimal
	Deductive             decimal.Decimal
}

type Result struct {
	Terms    domain.ContractTerms
	Initial  State
	Entries  []Entry
	Final    State
	Warnings []Warning
	Totals   Totals
}
