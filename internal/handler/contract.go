package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/service"
)

type contractService interface {
	CreateContract(ctx context.Context, req service.CreateContractRequest) (*domain.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	ListContracts(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error)
	AppendMovement(ctx context.Context, req service.AppendMovementRequest) (*ledger.Entry, error)
	GetLedger(ctx context.Context, id uuid.UUID) (*service.ContractLedger, error)
}

type ContractHandler struct {
	contracts contractService
}

func NewContractHandler(contracts contractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

type createContractRequest struct {
	Code                    string `json:"code"`
	Name                    string `json:"name"`
	Client                  string `json:"client"`
	ContractNumber          string `json:"contract_number"`
	ContractAmount          string `json:"contract_amount"`
	AdvancePercentage       string `json:"advance_percentage"`
	GuaranteeFundPercentage string `json:"guarantee_fund_percentage"`
	StartDate               string `json:"start_date"`
	EstimatedEndDate        string `json:"estimated_end_date"`
	Status                  string `json:"status"`
}

func (r createContractRequest) parse() (service.CreateContractRequest, []FieldError) {
	var errs []FieldError

	if strings.TrimSpace(r.Code) == "" {
		errs = append(errs, FieldError{Field: "code", Message: "required"})
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}

	amount, err := domain.ParseAmount(r.ContractAmount)
	if err != nil {
		errs = append(errs, FieldError{Field: "contract_amount", Message: "must be a positive decimal"})
	}
	advance := parsePercentage("advance_percentage", r.AdvancePercentage, &errs)
	guarantee := parsePercentage("guarantee_fund_percentage", r.GuaranteeFundPercentage, &errs)

	start := parseOptionalDate("start_date", r.StartDate, &errs)
	end := parseOptionalDate("estimated_end_date", r.EstimatedEndDate, &errs)

	status := domain.ContractStatus(r.Status)
	if r.Status != "" && !status.IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be active, paused, finished or cancelled"})
	}

	return service.CreateContractRequest{
		Code:           r.Code,
		Name:           r.Name,
		Client:         r.Client,
		ContractNumber: r.ContractNumber,
		Terms: domain.ContractTerms{
			ContractAmount:          amount,
			AdvancePercentage:       advance,
			GuaranteeFundPercentage: guarantee,
		},
		StartDate:        start,
		EstimatedEndDate: end,
		Status:           status,
	}, errs
}

// parsePercentage treats an empty value as 0.
func parsePercentage(field, s string, errs *[]FieldError) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		*errs = append(*errs, FieldError{Field: field, Message: "must be a number between 0 and 100"})
		return decimal.Zero
	}
	return d
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.parse()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	c, err := h.contracts.CreateContract(r.Context(), req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("contract creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/contracts/%s", c.ID))
	RespondSuccess(w, http.StatusCreated, toContractDTO(c))
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.ContractStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.ContractStatus(s)
		if !st.IsValid() {
			RespondValidationError(w, []FieldError{{Field: "status", Message: "must be active, paused, finished or cancelled"}})
			return
		}
		status = &st
	}

	list, err := h.contracts.ListContracts(r.Context(), status)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]contractDTO, len(list))
	for i := range list {
		out[i] = toContractDTO(&list[i])
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	c, err := h.contracts.GetContract(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toContractDTO(c))
}

type appendMovementRequest struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	PaidSoFar   string `json:"paid_so_far"`
}

// parse leaves sign and business checks to the ledger so rejections carry a
// reason; only malformed values fail here.
func (r appendMovementRequest) parse(contractID uuid.UUID) (service.AppendMovementRequest, []FieldError) {
	var errs []FieldError

	if r.Kind == "" {
		errs = append(errs, FieldError{Field: "kind", Message: "required"})
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a decimal"})
	}

	paid := decimal.Zero
	if r.PaidSoFar != "" {
		paid, err = decimal.NewFromString(r.PaidSoFar)
		if err != nil {
			errs = append(errs, FieldError{Field: "paid_so_far", Message: "must be a decimal"})
		}
	}

	req := service.AppendMovementRequest{
		ContractID:  contractID,
		Kind:        domain.MovementKind(r.Kind),
		Amount:      amount,
		Description: r.Description,
		PaidSoFar:   paid,
	}
	if d := parseOptionalDate("date", r.Date, &errs); d != nil {
		req.Date = *d
	}
	return req, errs
}

func (h *ContractHandler) AppendMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var body appendMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.parse(id)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entry, err := h.contracts.AppendMovement(r.Context(), req)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/contracts/%s/ledger", id))
	RespondSuccess(w, http.StatusCreated, toEntryDTO(*entry))
}

func (h *ContractHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	l, err := h.contracts.GetLedger(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLedgerDTO(l))
}
