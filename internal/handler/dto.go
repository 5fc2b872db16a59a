package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
	"github.com/josh-kwaku/obras-ledger/internal/service"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

func money(d decimal.Decimal) string {
	return domain.FormatAmount(d)
}

func dateString(t time.Time) string {
	return t.Format(time.DateOnly)
}

func optionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := dateString(*t)
	return &s
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and normalises to midnight UTC.
func parseDate(s string) (time.Time, bool) {
	t, ok := weekly.ParseDate(s)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func parseOptionalDate(field, s string, errs *[]FieldError) *time.Time {
	if s == "" {
		return nil
	}
	t, ok := parseDate(s)
	if !ok {
		*errs = append(*errs, FieldError{Field: field, Message: "must be a date (YYYY-MM-DD)"})
		return nil
	}
	return &t
}

// parsePeriod reads from and to query parameters. to is exclusive.
func parsePeriod(r *http.Request) (domain.Period, []FieldError) {
	var errs []FieldError
	q := r.URL.Query()

	from, ok := parseDate(q.Get("from"))
	if !ok {
		errs = append(errs, FieldError{Field: "from", Message: "required date (YYYY-MM-DD)"})
	}
	to, ok := parseDate(q.Get("to"))
	if !ok {
		errs = append(errs, FieldError{Field: "to", Message: "required date (YYYY-MM-DD)"})
	}
	if len(errs) == 0 && !to.After(from) {
		errs = append(errs, FieldError{Field: "to", Message: "must be after from"})
	}
	return domain.Period{From: from, To: to}, errs
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

type termsDTO struct {
	ContractAmount          string `json:"contract_amount"`
	AdvancePercentage       string `json:"advance_percentage"`
	GuaranteeFundPercentage string `json:"guarantee_fund_percentage"`
	InitialAdvance          string `json:"initial_advance"`
	GuaranteeFundCap        string `json:"guarantee_fund_cap"`
}

type contractDTO struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Client           string    `json:"client"`
	ContractNumber   string    `json:"contract_number"`
	Terms            termsDTO  `json:"terms"`
	StartDate        *string   `json:"start_date"`
	EstimatedEndDate *string   `json:"estimated_end_date"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func toContractDTO(c *domain.Contract) contractDTO {
	return contractDTO{
		ID:             c.ID,
		Code:           c.Code,
		Name:           c.Name,
		Client:         c.Client,
		ContractNumber: c.ContractNumber,
		Terms: termsDTO{
			ContractAmount:          money(c.Terms.ContractAmount),
			AdvancePercentage:       c.Terms.AdvancePercentage.String(),
			GuaranteeFundPercentage: c.Terms.GuaranteeFundPercentage.String(),
			InitialAdvance:          money(c.Terms.InitialAdvance()),
			GuaranteeFundCap:        money(c.Terms.GuaranteeFundCap()),
		},
		StartDate:        optionalDate(c.StartDate),
		EstimatedEndDate: optionalDate(c.EstimatedEndDate),
		Status:           string(c.Status),
		CreatedAt:        c.CreatedAt,
	}
}

type stateDTO struct {
	CurrentContractAmount    string `json:"current_contract_amount"`
	ContractPending          string `json:"contract_pending"`
	AdvanceBalance           string `json:"advance_balance"`
	GuaranteeFundAccumulated string `json:"guarantee_fund_accumulated"`
}

func toStateDTO(s ledger.State) stateDTO {
	return stateDTO{
		CurrentContractAmount:    money(s.CurrentContractAmount),
		ContractPending:          money(s.ContractPending),
		AdvanceBalance:           money(s.AdvanceBalance),
		GuaranteeFundAccumulated: money(s.GuaranteeFundAccumulated),
	}
}

type warningDTO struct {
	Seq       int64  `json:"seq"`
	Code      string `json:"code"`
	Requested string `json:"requested"`
	Applied   string `json:"applied"`
}

func toWarningDTOs(ws []ledger.Warning) []warningDTO {
	out := make([]warningDTO, len(ws))
	for i, w := range ws {
		out[i] = warningDTO{
			Seq:       w.Seq,
			Code:      string(w.Code),
			Requested: money(w.Requested),
			Applied:   money(w.Applied),
		}
	}
	return out
}

type entryDTO struct {
	ID                    uuid.UUID    `json:"id"`
	Seq                   int64        `json:"seq"`
	Kind                  string       `json:"kind"`
	Date                  string       `json:"date"`
	Description           string       `json:"description,omitempty"`
	Amount                string       `json:"amount"`
	PaidSoFar             string       `json:"paid_so_far"`
	AdvanceAmortization   string       `json:"advance_amortization"`
	GuaranteeFundWithheld string       `json:"guarantee_fund_withheld"`
	Net                   string       `json:"net"`
	BalanceToPay          string       `json:"balance_to_pay"`
	State                 stateDTO     `json:"state"`
	Warnings              []warningDTO `json:"warnings"`
}

func toEntryDTO(e ledger.Entry) entryDTO {
	return entryDTO{
		ID:                    e.Movement.ID,
		Seq:                   e.Movement.Seq,
		Kind:                  string(e.Movement.Kind),
		Date:                  dateString(e.Movement.Date),
		Description:           e.Movement.Description,
		Amount:                money(e.Movement.Amount),
		PaidSoFar:             money(e.Movement.PaidSoFar),
		AdvanceAmortization:   money(e.AdvanceAmortization),
		GuaranteeFundWithheld: money(e.GuaranteeFundWithheld),
		Net:                   money(e.Net),
		BalanceToPay:          money(e.BalanceToPay),
		State:                 toStateDTO(e.State),
		Warnings:              toWarningDTOs(e.Warnings),
	}
}

type totalsDTO struct {
	Estimated             string `json:"estimated"`
	AdvanceAmortization   string `json:"advance_amortization"`
	GuaranteeFundWithheld string `json:"guarantee_fund_withheld"`
	Net                   string `json:"net"`
	Paid                  string `json:"paid"`
	BalanceToPay          string `json:"balance_to_pay"`
	Additive              string `json:"additive"`
	Deductive             string `json:"deductive"`
}

type ledgerDTO struct {
	Contract contractDTO  `json:"contract"`
	Initial  stateDTO     `json:"initial"`
	Entries  []entryDTO   `json:"entries"`
	Final    stateDTO     `json:"final"`
	Totals   totalsDTO    `json:"totals"`
	Warnings []warningDTO `json:"warnings"`
}

func toLedgerDTO(l *service.ContractLedger) ledgerDTO {
	entries := make([]entryDTO, len(l.Result.Entries))
	for i, e := range l.Result.Entries {
		entries[i] = toEntryDTO(e)
	}
	t := l.Result.Totals
	return ledgerDTO{
		Contract: toContractDTO(&l.Contract),
		Initial:  toStateDTO(l.Result.Initial),
		Entries:  entries,
		Final:    toStateDTO(l.Result.Final),
		Totals: totalsDTO{
			Estimated:             money(t.Estimated),
			AdvanceAmortization:   money(t.AdvanceAmortization),
			GuaranteeFundWithheld: money(t.GuaranteeFundWithheld),
			Net:                   money(t.Net),
			Paid:                  money(t.Paid),
			BalanceToPay:          money(t.BalanceToPay),
			Additive:              money(t.Additive),
			Deductive:             money(t.Deductive),
		},
		Warnings: toWarningDTOs(l.Result.Warnings),
	}
}

type paymentDTO struct {
	ID          uuid.UUID `json:"id"`
	ContractID  uuid.UUID `json:"contract_id"`
	Code        string    `json:"code"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	PaidAt      *string   `json:"paid_at"`
	ScheduledAt *string   `json:"scheduled_at"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:          p.ID,
		ContractID:  p.ContractID,
		Code:        p.Code,
		Category:    string(p.Category),
		Amount:      money(p.Amount),
		Status:      string(p.Status),
		PaidAt:      optionalDate(p.PaidAt),
		ScheduledAt: optionalDate(p.ScheduledAt),
		Reference:   p.Reference,
		CreatedAt:   p.CreatedAt,
	}
}

type overheadDTO struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	IncurredOn  string    `json:"incurred_on"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOverheadDTO(e *domain.OverheadExpense) overheadDTO {
	return overheadDTO{
		ID:          e.ID,
		Description: e.Description,
		Amount:      money(e.Amount),
		IncurredOn:  dateString(e.IncurredOn),
		CreatedAt:   e.CreatedAt,
	}
}

type bucketDTO struct {
	WeekStart         string            `json:"week_start"`
	WeekEnd           string            `json:"week_end"`
	DirectTotal       string            `json:"direct_total"`
	ByCategory        map[string]string `json:"by_category"`
	PaymentCount      int               `json:"payment_count"`
	Cumulative        string            `json:"cumulative"`
	IndirectAllocated string            `json:"indirect_allocated"`
}

func toBucketDTOs(bs []weekly.Bucket) []bucketDTO {
	out := make([]bucketDTO, len(bs))
	for i, b := range bs {
		cats := make(map[string]string, len(b.ByCategory))
		for c, v := range b.ByCategory {
			cats[string(c)] = money(v)
		}
		out[i] = bucketDTO{
			WeekStart:         dateString(b.WeekStart),
			WeekEnd:           dateString(b.WeekEnd),
			DirectTotal:       money(b.DirectTotal),
			ByCategory:        cats,
			PaymentCount:      b.PaymentCount,
			Cumulative:        money(b.Cumulative),
			IndirectAllocated: money(b.IndirectAllocated),
		}
	}
	return out
}

type skipDTO struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

func toSkipDTOs(ss []weekly.Skip) []skipDTO {
	out := make([]skipDTO, len(ss))
	for i, s := range ss {
		out[i] = skipDTO{Ref: s.Ref, Reason: s.Reason}
	}
	return out
}

type weeklyDTO struct {
	ContractID uuid.UUID   `json:"contract_id"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Total      string      `json:"total"`
	Weeks      []bucketDTO `json:"weeks"`
	Skipped    []skipDTO   `json:"skipped"`
}

type contractDistributionDTO struct {
	ContractID uuid.UUID   `json:"contract_id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Direct     string      `json:"direct"`
	Percentage string      `json:"percentage"`
	Indirect   string      `json:"indirect"`
	Total      string      `json:"total"`
	Weeks      []bucketDTO `json:"weeks"`
	Skipped    []skipDTO   `json:"skipped"`
}

type distributionDTO struct {
	From           string                    `json:"from"`
	To             string                    `json:"to"`
	Pool           string                    `json:"pool"`
	PoolOverridden bool                      `json:"pool_overridden"`
	TotalDirect    string                    `json:"total_direct"`
	TotalIndirect  string                    `json:"total_indirect"`
	Degenerate     bool                      `json:"degenerate"`
	SingleContract bool                      `json:"single_contract"`
	Contracts      []contractDistributionDTO `json:"contracts"`
	Overhead       []overheadDTO             `json:"overhead"`
}

var percent = decimal.NewFromInt(100)

func toDistributionDTO(d *service.Distribution) distributionDTO {
	contracts := make([]contractDistributionDTO, len(d.Contracts))
	for i, c := range d.Contracts {
		contracts[i] = contractDistributionDTO{
			ContractID: c.ContractID,
			Code:       c.Code,
			Name:       c.Name,
			Direct:     money(c.Direct),
			Percentage: c.Proportion.Mul(percent).StringFixed(2),
			Indirect:   money(c.Indirect),
			Total:      money(c.Total),
			Weeks:      toBucketDTOs(c.Weeks),
			Skipped:    toSkipDTOs(c.Skipped),
		}
	}
	overhead := make([]overheadDTO, len(d.Overhead))
	for i := range d.Overhead {
		overhead[i] = toOverheadDTO(&d.Overhead[i])
	}
	return distributionDTO{
		From:           dateString(d.Period.From),
		To:             dateString(d.Period.To),
		Pool:           money(d.Pool),
		PoolOverridden: d.PoolOverridden,
		TotalDirect:    money(d.TotalDirect),
		TotalIndirect:  money(d.TotalIndirect),
		Degenerate:     d.Degenerate,
		SingleContract: d.SingleContract,
		Contracts:      contracts,
		Overhead:       overhead,
	}
}

type contractSummaryDTO struct {
	ContractID               uuid.UUID `json:"contract_id"`
	Code                     string    `json:"code"`
	Name                     string    `json:"name"`
	ContractAmount           string    `json:"contract_amount"`
	CurrentContractAmount    string    `json:"current_contract_amount"`
	Estimated                string    `json:"estimated"`
	ContractPending          string    `json:"contract_pending"`
	AdvanceBalance           string    `json:"advance_balance"`
	GuaranteeFundAccumulated string    `json:"guarantee_fund_accumulated"`
	Paid                     string    `json:"paid"`
}

type summaryDTO struct {
	ActiveContracts int                  `json:"active_contracts"`
	TotalContracted string               `json:"total_contracted"`
	TotalEstimated  string               `json:"total_estimated"`
	TotalPending    string               `json:"total_pending"`
	TotalPaid       string               `json:"total_paid"`
	Contracts       []contractSummaryDTO `json:"contracts"`
}

func toSummaryDTO(s *service.Summary) summaryDTO {
	contracts := make([]contractSummaryDTO, len(s.Contracts))
	for i, c := range s.Contracts {
		contracts[i] = contractSummaryDTO{
			ContractID:               c.ContractID,
			Code:                     c.Code,
			Name:                     c.Name,
			ContractAmount:           money(c.ContractAmount),
			CurrentContractAmount:    money(c.CurrentContractAmount),
			Estimated:                money(c.Estimated),
			ContractPending:          money(c.ContractPending),
			AdvanceBalance:           money(c.AdvanceBalance),
			GuaranteeFundAccumulated: money(c.GuaranteeFundAccumulated),
			Paid:                     money(c.Paid),
		}
	}
	return summaryDTO{
		ActiveContracts: s.ActiveContracts,
		TotalContracted: money(s.TotalContracted),
		TotalEstimated:  money(s.TotalEstimated),
		TotalPending:    money(s.TotalPending),
		TotalPaid:       money(s.TotalPaid),
		Contracts:       contracts,
	}
}
