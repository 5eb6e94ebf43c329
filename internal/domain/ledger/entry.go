package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

var (
	ErrSnapshotMismatch = errors.New("balance snapshot does not match amount for transaction type")
	ErrMissingSnapshot  = errors.New("required snapshot group missing for transaction type")
)

// Snapshot captures a balance immediately before and after an entry
type Snapshot struct {
	Pre  int64 `json:"pre" bson:"pre"`
	Post int64 `json:"post" bson:"post"`
}

// Entry is the immutable record of one balance-affecting event. It is
// created exactly once, never mutated, never deleted; corrections are new
// entries. Which snapshot groups are present depends on the transaction
// type: UserAggregate and ContentAggregate are set only for TIP and REFUND,
// where the lifetime-tipped and received-tips aggregates move. Balance
// holds the actor's spendable balance for TIP/REFUND/TOP_UP, the escrow
// balance for PAY_OUT, and the bonus balance for BONUS_CREDIT. The
// constructors below are the only way to build a valid entry.
type Entry struct {
	EntryID   uuid.UUID  `json:"entry_id" bson:"entry_id"`
	ActorID   uuid.UUID  `json:"actor_id" bson:"actor_id"`
	ContentID *uuid.UUID `json:"content_id,omitempty" bson:"content_id,omitempty"`
	SessionID *uuid.UUID `json:"session_id,omitempty" bson:"session_id,omitempty"`

	Type   shared.TransactionType `json:"type" bson:"type"`
	Amount int64                  `json:"amount" bson:"amount"` // Non-negative, minor units

	Balance          Snapshot  `json:"balance" bson:"balance"`
	UserAggregate    *Snapshot `json:"user_aggregate,omitempty" bson:"user_aggregate,omitempty"`
	ContentAggregate *Snapshot `json:"content_aggregate,omitempty" bson:"content_aggregate,omitempty"`
	GlobalAggregate  Snapshot  `json:"global_aggregate" bson:"global_aggregate"`

	ReferenceID   string `json:"reference_id,omitempty" bson:"reference_id,omitempty"`
	ReferenceType string `json:"reference_type,omitempty" bson:"reference_type,omitempty"`

	// Display fields captured at write time; they record what was true then
	// and are never re-derived.
	ActorName    string `json:"actor_name,omitempty" bson:"actor_name,omitempty"`
	ContentTitle string `json:"content_title,omitempty" bson:"content_title,omitempty"`
	SessionName  string `json:"session_name,omitempty" bson:"session_name,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`

	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// NewTipEntry records a tip: spendable balance down, both aggregates up.
func NewTipEntry(actorID uuid.UUID, contentID, sessionID *uuid.UUID, amount int64,
	balance, userAggregate, contentAggregate, globalAggregate Snapshot) (*Entry, error) {
	if contentID == nil {
		return nil, ErrMissingSnapshot
	}
	if err := checkDelta(shared.TransactionTypeTip, amount, balance); err != nil {
		return nil, err
	}
	if userAggregate.Post != userAggregate.Pre+amount ||
		contentAggregate.Post != contentAggregate.Pre+amount ||
		globalAggregate.Post != globalAggregate.Pre+amount {
		return nil, ErrSnapshotMismatch
	}

	e := newEntry(shared.TransactionTypeTip, actorID, amount, balance, globalAggregate)
	e.ContentID = contentID
	e.SessionID = sessionID
	e.UserAggregate = &userAggregate
	e.ContentAggregate = &contentAggregate
	return e, nil
}

// NewRefundEntry records the inverse of a tip. The aggregate snapshots may
// show a smaller decrease than amount when the pre value was below it; the
// caller clamps at zero and the snapshots record what actually happened.
func NewRefundEntry(actorID uuid.UUID, contentID *uuid.UUID, amount int64,
	balance, userAggregate, contentAggregate, globalAggregate Snapshot) (*Entry, error) {
	if contentID == nil {
		return nil, ErrMissingSnapshot
	}
	if err := checkDelta(shared.TransactionTypeRefund, amount, balance); err != nil {
		return nil, err
	}
	if err := checkClampedDecrease(amount, userAggregate, contentAggregate, globalAggregate); err != nil {
		return nil, err
	}

	e := newEntry(shared.TransactionTypeRefund, actorID, amount, balance, globalAggregate)
	e.ContentID = contentID
	e.UserAggregate = &userAggregate
	e.ContentAggregate = &contentAggregate
	return e, nil
}

// NewTopUpEntry records settled external funds. Aggregates are unaffected;
// the global snapshot is still captured (pre == post).
func NewTopUpEntry(actorID uuid.UUID, amount int64, balance, globalAggregate Snapshot) (*Entry, error) {
	if err := checkDelta(shared.TransactionTypeTopUp, amount, balance); err != nil {
		return nil, err
	}
	if globalAggregate.Post != globalAggregate.Pre {
		return nil, ErrSnapshotMismatch
	}
	return newEntry(shared.TransactionTypeTopUp, actorID, amount, balance, globalAggregate), nil
}

// NewPayoutEntry records an escrow withdrawal. Balance holds the escrow
// balance snapshots.
func NewPayoutEntry(actorID uuid.UUID, amount int64, escrowBalance, globalAggregate Snapshot) (*Entry, error) {
	if err := checkDelta(shared.TransactionTypePayout, amount, escrowBalance); err != nil {
		return nil, err
	}
	if globalAggregate.Post != globalAggregate.Pre {
		return nil, ErrSnapshotMismatch
	}
	return newEntry(shared.TransactionTypePayout, actorID, amount, escrowBalance, globalAggregate), nil
}

// NewBonusCreditEntry records a non-withdrawable credit. Balance holds the
// bonus balance snapshots; no aggregate moves.
func NewBonusCreditEntry(actorID uuid.UUID, amount int64, bonusBalance, globalAggregate Snapshot) (*Entry, error) {
	if err := checkDelta(shared.TransactionTypeBonusCredit, amount, bonusBalance); err != nil {
		return nil, err
	}
	if globalAggregate.Post != globalAggregate.Pre {
		return nil, ErrSnapshotMismatch
	}
	return newEntry(shared.TransactionTypeBonusCredit, actorID, amount, bonusBalance, globalAggregate), nil
}

func newEntry(t shared.TransactionType, actorID uuid.UUID, amount int64, balance, global Snapshot) *Entry {
	return &Entry{
		EntryID:         uuid.New(),
		ActorID:         actorID,
		Type:            t,
		Amount:          amount,
		Balance:         balance,
		GlobalAggregate: global,
		// Truncated to milliseconds so the timestamp survives a BSON
		// round trip unchanged; mongo datetimes carry no finer precision.
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func checkDelta(t shared.TransactionType, amount int64, balance Snapshot) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %d", amount)
	}
	if balance.Post != balance.Pre+t.BalanceDelta(amount) {
		return ErrSnapshotMismatch
	}
	return nil
}

// checkClampedDecrease validates snapshots that decrease by up to amount
// but never below zero.
func checkClampedDecrease(amount int64, snapshots ...Snapshot) error {
	for _, s := range snapshots {
		expected := s.Pre - amount
		if expected < 0 {
			expected = 0
		}
		if s.Post != expected {
			return ErrSnapshotMismatch
		}
	}
	return nil
}
