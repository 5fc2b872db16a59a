package ledger

import (
	"fmt"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
)

type Reason string

const (
	ReasonNonPositiveAmount Reason = "non_positive_amount"
	ReasonMissingDate       Reason = "missing_date"
	ReasonUnknownKind       Reason = "unknown_kind"
	ReasonUnexpectedField   Reason = "unexpected_field"
	ReasonNegativePaid      Reason = "negative_paid"
	ReasonOverpaid          Reason = "overpaid"
	ReasonContractOverdrawn Reason = "contract_overdrawn"
	ReasonNegativeContract  Reason = "negative_contract"
	ReasonDuplicateSequence Reason = "duplicate_sequence"
	ReasonOutOfOrder        Reason = "sequence_out_of_order"
)

// MovementError rejects a single movement. It unwraps to domain.ErrInvalidMovement.
type MovementError struct {
	Seq    int64
	Kind   domain.MovementKind
	Reason Reason
}

func (e *MovementError) Error() string {
	return fmt.Sprintf("movement %d (%s): %s", e.Seq, e.Kind, e.Reason)
}

func (e *MovementError) Unwrap() error {
	return domain.ErrInvalidMovement
}

func reject(m domain.Movement, reason Reason) error {
	return &MovementError{Seq: m.Seq, Kind: m.Kind, Reason: reason}
}
