package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
)

func replayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay a contract movement log and print its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in replayFile
			if err := decodeFile(args[0], &in); err != nil {
				return err
			}
			terms, err := in.Terms.toTerms()
			if err != nil {
				return err
			}
			movements, err := in.toMovements()
			if err != nil {
				return err
			}

			res, err := ledger.Replay(terms, movements)
			if err != nil {
				var merr *ledger.MovementError
				if errors.As(err, &merr) {
					logger(cmd).Warn("movement rejected", "seq", merr.Seq, "kind", merr.Kind, "reason", merr.Reason)
				}
				return err
			}
			for _, w := range res.Warnings {
				logger(cmd).Info("amount clamped", "seq", w.Seq, "code", w.Code,
					"requested", domain.FormatAmount(w.Requested), "applied", domain.FormatAmount(w.Applied))
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), toReplayOutput(res))
			}
			return printReplay(cmd.OutOrStdout(), res)
		},
	}
}

type stateOutput struct {
	CurrentContractAmount    string `json:"current_contract_amount"`
	ContractPending          string `json:"contract_pending"`
	AdvanceBalance           string `json:"advance_balance"`
	GuaranteeFundAccumulated string `json:"guarantee_fund_accumulated"`
}

type warningOutput struct {
	Seq       int64  `json:"seq"`
	Code      string `json:"code"`
	Requested string `json:"requested"`
	Applied   string `json:"applied"`
}

type entryOutput struct {
	Seq                   int64       `json:"seq"`
	Kind                  string      `json:"kind"`
	Date                  string      `json:"date"`
	Amount                string      `json:"amount"`
	AdvanceAmortization   string      `json:"advance_amortization"`
	GuaranteeFundWithheld string      `json:"guarantee_fund_withheld"`
	Net                   string      `json:"net"`
	PaidSoFar             string      `json:"paid_so_far"`
	BalanceToPay          string      `json:"balance_to_pay"`
	State                 stateOutput `json:"state"`
}

type totalsOutput struct {
	Estimated             string `json:"estimated"`
	AdvanceAmortization   string `json:"advance_amortization"`
	GuaranteeFundWithheld string `json:"guarantee_fund_withheld"`
	Net                   string `json:"net"`
	Paid                  string `json:"paid"`
	BalanceToPay          string `json:"balance_to_pay"`
	Additive              string `json:"additive"`
	Deductive             string `json:"deductive"`
}

type replayOutput struct {
	Initial  stateOutput     `json:"initial"`
	Entries  []entryOutput   `json:"entries"`
	Final    stateOutput     `json:"final"`
	Warnings []warningOutput `json:"warnings"`
	Totals   totalsOutput    `json:"totals"`
}

func toStateOutput(s ledger.State) stateOutput {
	return stateOutput{
		CurrentContractAmount:    domain.FormatAmount(s.CurrentContractAmount),
		ContractPending:          domain.FormatAmount(s.ContractPending),
		AdvanceBalance:           domain.FormatAmount(s.AdvanceBalance),
		GuaranteeFundAccumulated: domain.FormatAmount(s.GuaranteeFundAccumulated),
	}
}

func toReplayOutput(res *ledger.Result) replayOutput {
	out := replayOutput{
		Initial:  toStateOutput(res.Initial),
		Final:    toStateOutput(res.Final),
		Entries:  make([]entryOutput, len(res.Entries)),
		Warnings: make([]warningOutput, len(res.Warnings)),
		Totals: totalsOutput{
			Estimated:             domain.FormatAmount(res.Totals.Estimated),
			AdvanceAmortization:   domain.FormatAmount(res.Totals.AdvanceAmortization),
			GuaranteeFundWithheld: domain.FormatAmount(res.Totals.GuaranteeFundWithheld),
			Net:                   domain.FormatAmount(res.Totals.Net),
			Paid:                  domain.FormatAmount(res.Totals.Paid),
			BalanceToPay:          domain.FormatAmount(res.Totals.BalanceToPay),
			Additive:              domain.FormatAmount(res.Totals.Additive),
			Deductive:             domain.FormatAmount(res.Totals.Deductive),
		},
	}
	for i, e := range res.Entries {
		out.Entries[i] = entryOutput{
			Seq:                   e.Movement.Seq,
			Kind:                  string(e.Movement.Kind),
			Date:                  e.Movement.Date.Format("2006-01-02"),
			Amount:                domain.FormatAmount(e.Movement.Magnitude()),
			AdvanceAmortization:   domain.FormatAmount(e.AdvanceAmortization),
			GuaranteeFundWithheld: domain.FormatAmount(e.GuaranteeFundWithheld),
			Net:                   domain.FormatAmount(e.Net),
			PaidSoFar:             domain.FormatAmount(e.Movement.PaidSoFar),
			BalanceToPay:          domain.FormatAmount(e.BalanceToPay),
			State:                 toStateOutput(e.State),
		}
	}
	for i, w := range res.Warnings {
		out.Warnings[i] = warningOutput{
			Seq:       w.Seq,
			Code:      string(w.Code),
			Requested: domain.FormatAmount(w.Requested),
			Applied:   domain.FormatAmount(w.Applied),
		}
	}
	return out
}

func printReplay(w io.Writer, res *ledger.Result) error {
	out := toReplayOutput(res)
	tw := newTable(w)

	fmt.Fprintln(tw, "SEQ\tDATE\tKIND\tAMOUNT\tAMORTIZATION\tGUARANTEE\tNET\tPAID\tBALANCE\tCONTRACT\tPENDING\tADVANCE\tFUND")
	for _, e := range out.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Date, e.Kind, e.Amount, e.AdvanceAmortization, e.GuaranteeFundWithheld,
			e.Net, e.PaidSoFar, e.BalanceToPay, e.State.CurrentContractAmount,
			e.State.ContractPending, e.State.AdvanceBalance, e.State.GuaranteeFundAccumulated)
	}
	t := out.Totals
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t%s\t%s\t%s\t%s\t%s\t\t\t\t\n",
		t.Estimated, t.AdvanceAmortization, t.GuaranteeFundWithheld, t.Net, t.Paid, t.BalanceToPay)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, wn := range out.Warnings {
		fmt.Fprintf(w, "warning: movement %d %s (requested %s, applied %s)\n",
			wn.Seq, wn.Code, wn.Requested, wn.Applied)
	}
	return nil
}
