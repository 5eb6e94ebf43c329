package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEventType     = errors.New("invalid event type")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrDuplicateSettlement  = errors.New("settlement already processed for provider reference")
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrMissingProviderRef   = errors.New("provider reference is required")
	ErrMissingContent       = errors.New("content id is required")
	ErrMissingIdentityKey   = errors.New("identity key is required")
	ErrMissingReferenceID   = errors.New("reference id is required")
)

// EventType defines the inbound domain events consumed from Kafka
type EventType string

const (
	EventTypeTipPlaced          EventType = "TIP_PLACED"
	EventTypeRefundIssued       EventType = "REFUND_ISSUED"
	EventTypeExternalSettlement EventType = "EXTERNAL_SETTLEMENT"
	EventTypePayoutApproved     EventType = "PAYOUT_APPROVED"
	EventTypeIdentityVerified   EventType = "IDENTITY_VERIFIED"
	EventTypeBonusCredit        EventType = "BONUS_CREDIT"
)

// Event is the Kafka message envelope for all balance-affecting domain events.
// Fields beyond EventID/Type/ActorID are populated per event type: ContentID
// and SessionID for tips and refunds, ProviderReference for external
// settlements, ReferenceID for payouts and refund provenance, IdentityKey for
// identity verification, Reason and AdminActor for bonus credits.
type Event struct {
	EventID           uuid.UUID  `json:"event_id"`
	Type              EventType  `json:"type"`
	ActorID           uuid.UUID  `json:"actor_id"`
	ContentID         *uuid.UUID `json:"content_id,omitempty"`
	SessionID         *uuid.UUID `json:"session_id,omitempty"`
	Amount            int64      `json:"amount,omitempty"` // Minor currency units
	ProviderReference string     `json:"provider_reference,omitempty"`
	ReferenceID       string     `json:"reference_id,omitempty"`
	IdentityKey       string     `json:"identity_key,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	AdminActor        string     `json:"admin_actor,omitempty"`
	CorrelationID     string     `json:"correlation_id,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
}

// Validate checks that the envelope carries the fields its type requires.
// Balance preconditions (sufficient funds, idempotency) are checked later,
// atomically, at apply time.
func (e *Event) Validate() error {
	if !e.validType() {
		return ErrInvalidEventType
	}
	switch e.Type {
	case EventTypeTipPlaced, EventTypeRefundIssued:
		if e.Amount <= 0 {
			return ErrInvalidAmount
		}
		if e.ContentID == nil {
			return ErrMissingContent
		}
		if e.Type == EventTypeRefundIssued && e.ReferenceID == "" {
			return ErrMissingReferenceID
		}
	case EventTypeExternalSettlement:
		if e.Amount <= 0 {
			return ErrInvalidAmount
		}
		if e.ProviderReference == "" {
			return ErrMissingProviderRef
		}
	case EventTypePayoutApproved, EventTypeBonusCredit:
		if e.Amount <= 0 {
			return ErrInvalidAmount
		}
	case EventTypeIdentityVerified:
		if e.IdentityKey == "" {
			return ErrMissingIdentityKey
		}
	}
	return nil
}

func (e *Event) validType() bool {
	switch e.Type {
	case EventTypeTipPlaced, EventTypeRefundIssued, EventTypeExternalSettlement,
		EventTypePayoutApproved, EventTypeIdentityVerified, EventTypeBonusCredit:
		return true
	}
	return false
}
