package main

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/obras-ledger/internal/allocation"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

func allocateCmd(opts *options) *cobra.Command {
	var (
		pool     string
		from, to string
		weeks    bool
	)
	cmd := &cobra.Command{
		Use:   "allocate FILE",
		Short: "Distribute an overhead pool across contracts by direct spend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in allocateFile
			if err := decodeFile(args[0], &in); err != nil {
				return err
			}
			if pool != "" {
				in.Pool = pool
			}
			p, err := period(from, to)
			if err != nil {
				return err
			}

			d, err := distribute(in, p)
			if err != nil {
				return err
			}
			if d.Degenerate {
				logger(cmd).Warn("no direct spend in period; overhead left unassigned", "pool", d.Pool)
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			return printDistribution(cmd.OutOrStdout(), d, weeks)
		},
	}
	cmd.Flags().StringVar(&pool, "pool", "", "overhead pool, overrides the file")
	cmd.Flags().StringVar(&from, "from", "", "only count payments on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "only count payments before (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&weeks, "weeks", false, "print the per-week split of each contract")
	return cmd
}

type contractShareOutput struct {
	Code       string         `json:"code"`
	Name       string         `json:"name,omitempty"`
	Direct     string         `json:"direct"`
	Percentage string         `json:"percentage"`
	Indirect   string         `json:"indirect"`
	Total      string         `json:"total"`
	Weeks      []bucketOutput `json:"weeks"`
	Skipped    []skipOutput   `json:"skipped"`
}

type distributionOutput struct {
	Pool           string                `json:"pool"`
	TotalDirect    string                `json:"total_direct"`
	TotalIndirect  string                `json:"total_indirect"`
	Degenerate     bool                  `json:"degenerate"`
	SingleContract bool                  `json:"single_contract"`
	Contracts      []contractShareOutput `json:"contracts"`
}

func distribute(in allocateFile, p domain.Period) (*distributionOutput, error) {
	amount, err := parseDecimal("pool", in.Pool)
	if err != nil {
		return nil, err
	}

	results := make([]weekly.Result, len(in.Contracts))
	shares := make([]allocation.Share, len(in.Contracts))
	for i, c := range in.Contracts {
		payments, err := toPayments(fmt.Sprintf("contracts[%d].payments", i), c.Payments)
		if err != nil {
			return nil, err
		}
		results[i] = weekly.Aggregate(weekly.FromPayments(withinPeriod(payments, p)), weekly.Options{})
		shares[i] = allocation.Share{ContractID: contractID(c.label(i)), Direct: results[i].Total}
	}

	res, err := allocation.Allocate(shares, amount)
	if err != nil {
		return nil, err
	}

	out := &distributionOutput{
		Pool:           domain.FormatAmount(res.Pool),
		TotalDirect:    domain.FormatAmount(res.TotalDirect),
		Degenerate:     res.Degenerate,
		SingleContract: res.SingleContract,
		Contracts:      make([]contractShareOutput, len(res.Allocations)),
	}

	indirect := decimal.Zero
	for i, a := range res.Allocations {
		buckets, err := allocation.AllocateWeekly(results[i].Buckets, a.Allocated)
		if err != nil {
			return nil, err
		}
		skipped := make([]skipOutput, len(results[i].Skipped))
		for j, s := range results[i].Skipped {
			skipped[j] = skipOutput{Ref: s.Ref, Reason: s.Reason}
		}

		out.Contracts[i] = contractShareOutput{
			Code:       in.Contracts[i].label(i),
			Name:       in.Contracts[i].Name,
			Direct:     domain.FormatAmount(a.Direct),
			Percentage: a.Proportion.Mul(decimal.NewFromInt(100)).StringFixed(2),
			Indirect:   domain.FormatAmount(a.Allocated),
			Total:      domain.FormatAmount(a.Direct.Add(a.Allocated)),
			Weeks:      toBucketOutputs(buckets, true),
			Skipped:    skipped,
		}
		indirect = indirect.Add(a.Allocated)
	}
	out.TotalIndirect = domain.FormatAmount(indirect)
	return out, nil
}

func printDistribution(w io.Writer, d *distributionOutput, weeks bool) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CONTRACT\tDIRECT\tSHARE %\tINDIRECT\tTOTAL")
	for _, c := range d.Contracts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Code, c.Direct, c.Percentage, c.Indirect, c.Total)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\t%s\t\n", d.TotalDirect, d.TotalIndirect)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "pool: %s\n", d.Pool)
	if d.Degenerate {
		fmt.Fprintln(w, "note: no direct spend in period, nothing allocated")
	}

	if !weeks {
		return nil
	}
	for _, c := range d.Contracts {
		fmt.Fprintf(w, "\n%s\n", c.Code)
		tw := newTable(w)
		fmt.Fprintln(tw, "WEEK\tDIRECT\tINDIRECT")
		for _, b := range c.Weeks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.WeekStart, b.DirectTotal, b.IndirectTotal)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
