package allocation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnresolvedPayee = errors.New("ownership shares cannot be resolved: no positive percentages")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// EscrowEntryStatus defines escrow history entry states
type EscrowEntryStatus string

const (
	EscrowEntryStatusPending EscrowEntryStatus = "PENDING"
	EscrowEntryStatusClaimed EscrowEntryStatus = "CLAIMED"
)

// EscrowEntry is one payee's share of one tip, held in escrow until a payout
// consumes it. RemainingAmount tracks FIFO partial consumption: a payout for
// less than the full escrow balance consumes the oldest entries first and may
// split an entry, claiming part and leaving the rest pending.
type EscrowEntry struct {
	ID              int64             `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	ContentID       uuid.UUID         `json:"content_id"`
	TipEntryID      uuid.UUID         `json:"tip_entry_id"` // Ledger entry of the originating tip
	Amount          int64             `json:"amount"`
	RemainingAmount int64             `json:"remaining_amount"`
	Status          EscrowEntryStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	ClaimedAt       *time.Time        `json:"claimed_at,omitempty"`
}

// PendingAllocation is a revenue share earmarked for a payee with no known
// user account. It is claimed when a later identity verification matches
// MatchKey and moves the amount into the user's escrow balance.
type PendingAllocation struct {
	ID         int64      `json:"id"`
	ContentID  uuid.UUID  `json:"content_id"`
	TipEntryID uuid.UUID  `json:"tip_entry_id"`
	PayeeName  string     `json:"payee_name"`
	ChannelRef string     `json:"channel_ref,omitempty"`
	MatchKey   string     `json:"match_key"` // Normalized payee identity
	Amount     int64      `json:"amount"`
	Claimed    bool       `json:"claimed"`
	ClaimedBy  *uuid.UUID `json:"claimed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
}

// NormalizeMatchKey canonicalizes a payee identity for fuzzy matching:
// lowercased, trimmed, inner whitespace collapsed to single spaces.
func NormalizeMatchKey(name, channelRef string) string {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if channelRef != "" {
		key = key + "|" + strings.ToLower(strings.TrimSpace(channelRef))
	}
	return key
}

// KeysMatch reports whether a claimed identity key matches a stored match
// key: exact match, or either side contains the other (channel refs and
// display names drift between data sources).
func KeysMatch(stored, claimed string) bool {
	if stored == "" || claimed == "" {
		return false
	}
	if stored == claimed {
		return true
	}
	return strings.Contains(stored, claimed) || strings.Contains(claimed, stored)
}
