package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

// Input files are YAML; JSON documents parse the same way. Amounts and dates are
// read as strings so that 1500.10 keeps its cents and 2025-03-03 stays a date.

type termsFile struct {
	ContractAmount          string `yaml:"contract_amount"`
	AdvancePercentage       string `yaml:"advance_percentage"`
	GuaranteeFundPercentage string `yaml:"guarantee_fund_percentage"`
}

type movementFile struct {
	Seq         int64  `yaml:"seq"`
	Kind        string `yaml:"kind"`
	Amount      string `yaml:"amount"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	PaidSoFar   string `yaml:"paid_so_far"`
}

type replayFile struct {
	Terms     termsFile      `yaml:"terms"`
	Movements []movementFile `yaml:"movements"`
}

type paymentFile struct {
	Ref         string `yaml:"ref"`
	Category    string `yaml:"category"`
	Amount      string `yaml:"amount"`
	Status      string `yaml:"status"`
	PaidAt      string `yaml:"paid_at"`
	ScheduledAt string `yaml:"scheduled_at"`
}

type weeklyFile struct {
	From     string        `yaml:"from"`
	To       string        `yaml:"to"`
	Payments []paymentFile `yaml:"payments"`
}

type contractFile struct {
	Code     string        `yaml:"code"`
	Name     string        `yaml:"name"`
	Payments []paymentFile `yaml:"payments"`
}

type allocateFile struct {
	Pool      string         `yaml:"pool"`
	Contracts []contractFile `yaml:"contracts"`
}

func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("decodeFile: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decodeFile: %s: %w", path, err)
	}
	return nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a decimal", field, s)
	}
	return d, nil
}

func (t termsFile) toTerms() (domain.ContractTerms, error) {
	amount, err := parseDecimal("contract_amount", t.ContractAmount)
	if err != nil {
		return domain.ContractTerms{}, err
	}
	advance, err := parseDecimal("advance_percentage", t.AdvancePercentage)
	if err != nil {
		return domain.ContractTerms{}, err
	}
	guarantee, err := parseDecimal("guarantee_fund_percentage", t.GuaranteeFundPercentage)
	if err != nil {
		return domain.ContractTerms{}, err
	}
	return domain.ContractTerms{
		ContractAmount:          amount,
		AdvancePercentage:       advance,
		GuaranteeFundPercentage: guarantee,
	}, nil
}

// toMovements numbers movements without a seq by their position in the file.
// Dates that do not parse are left zero so the ledger rejects them by reason.
func (f replayFile) toMovements() ([]domain.Movement, error) {
	out := make([]domain.Movement, len(f.Movements))
	for i, m := range f.Movements {
		amount, err := parseDecimal(fmt.Sprintf("movements[%d].amount", i), m.Amount)
		if err != nil {
			return nil, err
		}
		paid, err := parseDecimal(fmt.Sprintf("movements[%d].paid_so_far", i), m.PaidSoFar)
		if err != nil {
			return nil, err
		}

		seq := m.Seq
		if seq == 0 {
			seq = int64(i + 1)
		}
		date, _ := weekly.ParseDate(m.Date)

		out[i] = domain.Movement{
			Seq:         seq,
			Kind:        domain.MovementKind(m.Kind),
			Amount:      amount,
			Date:        date,
			Description: m.Description,
			PaidSoFar:   paid,
		}
	}
	return out, nil
}

// toPayments drops cancelled payments, matching what the repository returns.
func toPayments(field string, in []paymentFile) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0, len(in))
	for i, p := range in {
		status := domain.PaymentStatus(p.Status)
		if p.Status == "" {
			status = domain.PaymentStatusCompleted
		}
		if !status.IsValid() {
			return nil, fmt.Errorf("%s[%d].status: unknown status %q", field, i, p.Status)
		}
		if status == domain.PaymentStatusCancelled {
			continue
		}

		category := domain.PaymentCategory(p.Category)
		if p.Category == "" {
			category = domain.PaymentCategoryOther
		}
		if !category.IsValid() {
			return nil, fmt.Errorf("%s[%d].category: unknown category %q", field, i, p.Category)
		}

		amount, err := domain.ParseAmount(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].amount: must be a positive decimal: %w", field, i, err)
		}

		ref := p.Ref
		if ref == "" {
			ref = fmt.Sprintf("%s[%d]", field, i)
		}

		// A paid_at that does not parse is not replaced by scheduled_at; the
		// aggregator skips the payment as undated.
		paidAt, paidOK := weekly.ParseDate(p.PaidAt)
		var scheduledAt *time.Time
		if p.PaidAt == "" || paidOK {
			scheduledAt = optionalDate(p.ScheduledAt)
		}

		out = append(out, domain.Payment{
			Code:        ref,
			Category:    category,
			Amount:      domain.RoundCurrency(amount),
			Status:      status,
			PaidAt:      datePtr(paidAt, paidOK),
			ScheduledAt: scheduledAt,
		})
	}
	return out, nil
}

func optionalDate(s string) *time.Time {
	return datePtr(weekly.ParseDate(s))
}

func datePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}

// period reads from/to; either may be empty.
func period(from, to string) (domain.Period, error) {
	var p domain.Period
	if from != "" {
		t, ok := weekly.ParseDate(from)
		if !ok {
			return p, fmt.Errorf("from: %q is not a date", from)
		}
		p.From = t
	}
	if to != "" {
		t, ok := weekly.ParseDate(to)
		if !ok {
			return p, fmt.Errorf("to: %q is not a date", to)
		}
		p.To = t
	}
	if !p.From.IsZero() && !p.To.IsZero() {
		if err := p.Validate(); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (c contractFile) label(i int) string {
	if c.Code != "" {
		return c.Code
	}
	return fmt.Sprintf("contract-%d", i+1)
}

// contractID derives a stable id from the code so that repeated codes collide.
func contractID(code string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(code))
}

// withinPeriod keeps payments dated inside p. Undated payments are kept so the
// aggregator reports them as skipped.
func withinPeriod(payments []domain.Payment, p domain.Period) []domain.Payment {
	out := payments[:0:0]
	for _, pay := range payments {
		d, ok := pay.EffectiveDate()
		if ok && !p.From.IsZero() && d.Before(p.From) {
			continue
		}
		if ok && !p.To.IsZero() && !d.Before(p.To) {
			continue
		}
		out = append(out, pay)
	}
	return out
}
