// Package events publishes ledger facts to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeMovementAppended Type = "movement_appended"
	TypeWeeklyReport     Type = "weekly_report"
)

type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	Payload    any        `json:"payload"`
}

func New(t Type, contractID *uuid.UUID, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		ContractID: contractID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
