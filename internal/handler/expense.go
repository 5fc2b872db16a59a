package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/service"
	"github.com/josh-kwaku/obras-ledger/internal/weekly"
)

type expenseService interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*domain.Payment, error)
	WeeklyExpenses(ctx context.Context, contractID uuid.UUID, period domain.Period, dense bool) (*weekly.Result, error)
	RecordOverhead(ctx context.Context, req service.RecordOverheadRequest) (*domain.OverheadExpense, error)
	Distribution(ctx context.Context, period domain.Period, pool *decimal.Decimal) (*service.Distribution, error)
}

type ExpenseHandler struct {
	expenses expenseService
}

func NewExpenseHandler(expenses expenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

type recordPaymentRequest struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	PaidAt      string `json:"paid_at"`
	ScheduledAt string `json:"scheduled_at"`
	Reference   string `json:"reference"`
}

func (r recordPaymentRequest) parse(contractID uuid.UUID) (service.RecordPaymentRequest, []FieldError) {
	var errs []FieldError

	if strings.TrimSpace(r.Code) == "" {
		errs = append(errs, FieldError{Field: "code", Message: "required"})
	}

	category := domain.PaymentCategory(r.Category)
	if !category.IsValid() {
		errs = append(errs, FieldError{Field: "category", Message: "must be purchase_order, payroll or other"})
	}

	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a positive decimal"})
	}

	status := domain.PaymentStatus(r.Status)
	if r.Status != "" && !status.IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be scheduled, processed, completed or cancelled"})
	}

	return service.RecordPaymentRequest{
		ContractID:  contractID,
		Code:        r.Code,
		Category:    category,
		Amount:      amount,
		Status:      status,
		PaidAt:      parseOptionalDate("paid_at", r.PaidAt, &errs),
		ScheduledAt: parseOptionalDate("scheduled_at", r.ScheduledAt, &errs),
		Reference:   r.Reference,
	}, errs
}

func (h *ExpenseHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var body recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.parse(id)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.expenses.RecordPayment(r.Context(), req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment recording failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *ExpenseHandler) WeeklyExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	period, fields := parsePeriod(r)
	dense, err := parseBool(r.URL.Query().Get("dense"))
	if err != nil {
		fields = append(fields, FieldError{Field: "dense", Message: "must be true or false"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.expenses.WeeklyExpenses(r.Context(), id, period, dense)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, weeklyDTO{
		ContractID: id,
		From:       dateString(period.From),
		To:         dateString(period.To),
		Total:      money(res.Total),
		Weeks:      toBucketDTOs(res.Buckets),
		Skipped:    toSkipDTOs(res.Skipped),
	})
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

type recordOverheadRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	IncurredOn  string `json:"incurred_on"`
}

func (r recordOverheadRequest) parse() (service.RecordOverheadRequest, []FieldError) {
	var errs []FieldError

	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a positive decimal"})
	}
	incurred, ok := parseDate(r.IncurredOn)
	if !ok {
		errs = append(errs, FieldError{Field: "incurred_on", Message: "required date (YYYY-MM-DD)"})
	}

	return service.RecordOverheadRequest{
		Description: r.Description,
		Amount:      amount,
		IncurredOn:  incurred,
	}, errs
}

func (h *ExpenseHandler) RecordOverhead(w http.ResponseWriter, r *http.Request) {
	var body recordOverheadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.parse()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	e, err := h.expenses.RecordOverhead(r.Context(), req)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toOverheadDTO(e))
}

func (h *ExpenseHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	period, fields := parsePeriod(r)

	var pool *decimal.Decimal
	if s := r.URL.Query().Get("pool"); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil || p.IsNegative() {
			fields = append(fields, FieldError{Field: "pool", Message: "must be a non-negative decimal"})
		} else {
			pool = &p
		}
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	d, err := h.expenses.Distribution(r.Context(), period, pool)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toDistributionDTO(d))
}
