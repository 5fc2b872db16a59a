package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/events"
	"github.com/josh-kwaku/obras-ledger/internal/ledger"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
	"github.com/josh-kwaku/obras-ledger/internal/metrics"
	"github.com/josh-kwaku/obras-ledger/internal/repository"
)

type contractRepo interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Contract, error)
	List(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error)
}

type movementRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Movement, error)
	ListByContractTx(ctx context.Context, tx *sql.Tx, contractID uuid.UUID) ([]domain.Movement, error)
}

type ContractService struct {
	contracts contractRepo
	movements movementRepo
	publisher events.Publisher
	metrics   *metrics.Metrics
	db        *sql.DB
}

func NewContractService(
	contracts contractRepo,
	movements movementRepo,
	publisher events.Publisher,
	m *metrics.Metrics,
	db *sql.DB,
) *ContractService {
	return &ContractService{
		contracts: contracts,
		movements: movements,
		publisher: publisher,
		metrics:   m,
		db:        db,
	}
}

type CreateContractRequest struct {
	Code             string
	Name             string
	Client           string
	ContractNumber   string
	Terms            domain.ContractTerms
	StartDate        *time.Time
	EstimatedEndDate *time.Time
	Status           domain.ContractStatus
}

func (s *ContractService) CreateContract(ctx context.Context, req CreateContractRequest) (*domain.Contract, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("CreateContract: code and name are required: %w", domain.ErrInvalidRequest)
	}
	// Rounded to storage precision so replays use exactly the returned terms.
	terms := domain.ContractTerms{
		ContractAmount:          domain.RoundCurrency(req.Terms.ContractAmount),
		AdvancePercentage:       domain.RoundPercentage(req.Terms.AdvancePercentage),
		GuaranteeFundPercentage: domain.RoundPercentage(req.Terms.GuaranteeFundPercentage),
	}
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("CreateContract: %w", err)
	}
	if req.StartDate != nil && req.EstimatedEndDate != nil && req.EstimatedEndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("CreateContract: end date before start date: %w", domain.ErrInvalidRequest)
	}

	status := req.Status
	if status == "" {
		status = domain.ContractStatusActive
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("CreateContract: status %q: %w", status, domain.ErrInvalidRequest)
	}

	c := &domain.Contract{
		ID:             uuid.New(),
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Client:         req.Client,
		ContractNumber: req.ContractNumber,
		Terms:            terms,
		StartDate:        req.StartDate,
		EstimatedEndDate: req.EstimatedEndDate,
		Status:           status,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("CreateContract: %w", err)
	}

	log.Info("contract created",
		"contract_id", c.ID,
		"code", c.Code,
		"contract_amount", c.Terms.ContractAmount,
	)

	return c, nil
}

func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetContract: %w", err)
	}
	return c, nil
}

func (s *ContractService) ListContracts(ctx context.Context, status *domain.ContractStatus) ([]domain.Contract, error) {
	if status != nil && !status.IsValid() {
		return nil, fmt.Errorf("ListContracts: status %q: %w", *status, domain.ErrInvalidRequest)
	}
	list, err := s.contracts.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("ListContracts: %w", err)
	}
	return list, nil
}

type AppendMovementRequest struct {
	ContractID  uuid.UUID
	Kind        domain.MovementKind
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	PaidSoFar   decimal.Decimal
}

type MovementAppendedPayload struct {
	Seq      int64                `json:"seq"`
	Kind     domain.MovementKind  `json:"kind"`
	Amount   decimal.Decimal      `json:"amount"`
	Net      decimal.Decimal      `json:"net"`
	Pending  decimal.Decimal      `json:"contract_pending"`
	Advance  decimal.Decimal      `json:"advance_balance"`
	Warnings []ledger.WarningCode `json:"warnings,omitempty"`
}

// AppendMovement validates the candidate against the stored log under a row lock
// on the contract and stores it only when the replay accepts it.
func (s *ContractService) AppendMovement(ctx context.Context, req AppendMovementRequest) (*ledger.Entry, error) {
	log := logging.FromContext(ctx)

	candidate := domain.Movement{
		ID:          uuid.New(),
		ContractID:  req.ContractID,
		Kind:        req.Kind,
		Amount:      domain.RoundCurrency(req.Amount),
		Date:        req.Date,
		Description: req.Description,
		PaidSoFar:   domain.RoundCurrency(req.PaidSoFar),
		CreatedAt:   time.Now().UTC(),
	}
	if candidate.Kind == domain.MovementKindDeductive {
		candidate.Amount = candidate.Magnitude()
	}

	entry, err := s.appendInTx(ctx, candidate)
	if err != nil {
		var merr *ledger.MovementError
		if errors.As(err, &merr) {
			s.metrics.MovementsRejected.WithLabelValues(string(merr.Reason)).Inc()
			log.Warn("movement rejected",
				"contract_id", req.ContractID,
				"kind", req.Kind,
				"reason", merr.Reason,
			)
		}
		return nil, fmt.Errorf("AppendMovement: %w", err)
	}

	s.metrics.MovementsAppended.WithLabelValues(string(entry.Movement.Kind)).Inc()
	codes := make([]ledger.WarningCode, 0, len(entry.Warnings))
	for _, w := range entry.Warnings {
		s.metrics.LedgerWarnings.WithLabelValues(string(w.Code)).Inc()
		codes = append(codes, w.Code)
	}

	log.Info("movement appended",
		"contract_id", req.ContractID,
		"seq", entry.Movement.Seq,
		"kind", entry.Movement.Kind,
		"amount", entry.Movement.Amount,
		"warnings", len(entry.Warnings),
	)

	contractID := req.ContractID
	publish(ctx, s.publisher, s.metrics, events.New(events.TypeMovementAppended, &contractID, MovementAppendedPayload{
		Seq:      entry.Movement.Seq,
		Kind:     entry.Movement.Kind,
		Amount:   entry.Movement.Amount,
		Net:      entry.Net,
		Pending:  entry.State.ContractPending,
		Advance:  entry.State.AdvanceBalance,
		Warnings: codes,
	}))

	return entry, nil
}

func (s *ContractService) appendInTx(ctx context.Context, candidate domain.Movement) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		contract, err := s.contracts.GetForUpdate(ctx, tx, candidate.ContractID)
		if err != nil {
			return err
		}
		if contract.Status != domain.ContractStatusActive {
			return domain.ErrContractNotActive
		}

		stored, err := s.movements.ListByContractTx(ctx, tx, contract.ID)
		if err != nil {
			return err
		}

		entry, _, err = ledger.Append(contract.Terms, stored, candidate)
		if err != nil {
			return err
		}
		s.metrics.LedgerReplays.Inc()

		return s.movements.Create(ctx, tx, &entry.Movement)
	})
	if err != nil {
		return nil, fmt.Errorf("appendInTx: %w", err)
	}
	return entry, nil
}

type ContractLedger struct {
	Contract domain.Contract
	Result   ledger.Result
}

// GetLedger replays the stored log on every call; nothing derived is cached.
func (s *ContractService) GetLedger(ctx context.Context, id uuid.UUID) (*ContractLedger, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetLedger: %w", err)
	}

	stored, err := s.movements.ListByContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetLedger: %w", err)
	}

	res, err := ledger.Replay(c.Terms, stored)
	if err != nil {
		logging.FromContext(ctx).Error("stored log failed replay", "contract_id", id, "error", err)
		return nil, fmt.Errorf("GetLedger: %w", err)
	}
	s.metrics.LedgerReplays.Inc()

	return &ContractLedger{Contract: *c, Result: *res}, nil
}
