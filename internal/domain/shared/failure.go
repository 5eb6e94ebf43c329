package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFailure records an event that was rejected before any balance change.
// Rejected events never produce a ledger entry; this collection is the audit
// trail operators use to investigate rejections.
type EventFailure struct {
	EventID       uuid.UUID `json:"event_id" bson:"event_id"`
	EventType     EventType `json:"event_type" bson:"event_type"`
	ActorID       uuid.UUID `json:"actor_id" bson:"actor_id"`
	Amount        int64     `json:"amount" bson:"amount"`
	Reason        string    `json:"reason" bson:"reason"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// FailureRepository manages rejected-event persistence
type FailureRepository interface {
	Create(ctx context.Context, failure *EventFailure) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*EventFailure, error)
	ListRecent(ctx context.Context, limit int) ([]*EventFailure, error)
}
