package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

func weeklyCmd(opts *options) *cobra.Command {
	var (
		dense    bool
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "weekly FILE",
		Short: "Bucket a contract's payments into Monday-start weeks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in weeklyFile
			if err := decodeFile(args[0], &in); err != nil {
				return err
			}
			if from != "" {
				in.From = from
			}
			if to != "" {
				in.To = to
			}
			p, err := period(in.From, in.To)
			if err != nil {
				return err
			}
			payments, err := toPayments("payments", in.Payments)
			if err != nil {
				return err
			}

			payments = withinPeriod(payments, p)

			res := weekly.Aggregate(weekly.FromPayments(payments), weekly.Options{Dense: dense, From: p.From, To: p.To})
			for _, s := range res.Skipped {
				logger(cmd).Info("payment skipped", "ref", s.Ref, "reason", s.Reason)
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), toWeeklyOutput(res))
			}
			return printWeekly(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&dense, "dense", false, "include weeks without payments")
	cmd.Flags().StringVar(&from, "from", "", "range start (YYYY-MM-DD), overrides the file")
	cmd.Flags().StringVar(&to, "to", "", "range end, exclusive (YYYY-MM-DD), overrides the file")
	return cmd
}

type bucketOutput struct {
	WeekStart     string            `json:"week_start"`
	WeekEnd       string            `json:"week_end"`
	DirectTotal   string            `json:"direct_total"`
	ByCategory    map[string]string `json:"by_category"`
	PaymentCount  int               `json:"payment_count"`
	Cumulative    string            `json:"cumulative"`
	IndirectTotal string            `json:"indirect_allocated,omitempty"`
}

type skipOutput struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

type weeklyOutput struct {
	Total   string         `json:"total"`
	Weeks   []bucketOutput `json:"weeks"`
	Skipped []skipOutput   `json:"skipped"`
}

func toBucketOutputs(buckets []weekly.Bucket, withIndirect bool) []bucketOutput {
	out := make([]bucketOutput, len(buckets))
	for i, b := range buckets {
		cats := make(map[string]string, len(b.ByCategory))
		for c, v := range b.ByCategory {
			cats[string(c)] = domain.FormatAmount(v)
		}
		out[i] = bucketOutput{
			WeekStart:    b.WeekStart.Format("2006-01-02"),
			WeekEnd:      b.WeekEnd.Format("2006-01-02"),
			DirectTotal:  domain.FormatAmount(b.DirectTotal),
			ByCategory:   cats,
			PaymentCount: b.PaymentCount,
			Cumulative:   domain.FormatAmount(b.Cumulative),
		}
		if withIndirect {
			out[i].IndirectTotal = domain.FormatAmount(b.IndirectAllocated)
		}
	}
	return out
}

func toWeeklyOutput(res weekly.Result) weeklyOutput {
	out := weeklyOutput{
		Total:   domain.FormatAmount(res.Total),
		Weeks:   toBucketOutputs(res.Buckets, false),
		Skipped: make([]skipOutput, len(res.Skipped)),
	}
	for i, s := range res.Skipped {
		out.Skipped[i] = skipOutput{Ref: s.Ref, Reason: s.Reason}
	}
	return out
}

func printWeekly(w io.Writer, res weekly.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "WEEK\tEND\tPURCHASE ORDERS\tPAYROLL\tOTHER\tDIRECT\tCUMULATIVE\tPAYMENTS")
	for _, b := range res.Buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			b.WeekStart.Format("2006-01-02"), b.WeekEnd.Format("2006-01-02"),
			domain.FormatAmount(b.ByCategory[domain.PaymentCategoryPurchaseOrder]),
			domain.FormatAmount(b.ByCategory[domain.PaymentCategoryPayroll]),
			domain.FormatAmount(b.ByCategory[domain.PaymentCategoryOther]),
			domain.FormatAmount(b.DirectTotal), domain.FormatAmount(b.Cumulative), b.PaymentCount)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\t\t\n", domain.FormatAmount(res.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range res.Skipped {
		fmt.Fprintf(w, "skipped: %s (%s)\n", s.Ref, s.Reason)
	}
	return nil
}
