package allocation

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowRepository manages per-payee escrow history entries
type EscrowRepository interface {
	Create(ctx context.Context, entry *EscrowEntry) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*EscrowEntry, error)

	// ConsumeFIFO claims pending escrow entries oldest-first until amount is
	// covered, splitting the last entry if it is only partially consumed.
	// The caller must already hold the atomic escrow-balance debit in the
	// same transaction; ConsumeFIFO returns the entries it touched.
	ConsumeFIFO(ctx context.Context, userID uuid.UUID, amount int64) ([]*EscrowEntry, error)

	WithTx(tx pgx.Tx) EscrowRepository
}

// PendingRepository manages unclaimed allocations for unregistered payees
type PendingRepository interface {
	Create(ctx context.Context, pending *PendingAllocation) error
	ListUnclaimed(ctx context.Context, limit int) ([]*PendingAllocation, error)

	// FindMatches returns unclaimed allocations whose match key fuzzy-matches
	// the given identity key.
	FindMatches(ctx context.Context, identityKey string) ([]*PendingAllocation, error)

	// Claim marks an allocation claimed by the given user. Returns
	// ErrAlreadyClaimed if a concurrent claim got there first.
	Claim(ctx context.Context, id int64, userID uuid.UUID) error

	WithTx(tx pgx.Tx) PendingRepository
}

// ErrAlreadyClaimed indicates a pending allocation was claimed concurrently
type ErrAlreadyClaimed struct {
	ID int64
}

func (e ErrAlreadyClaimed) Error() string {
	return "pending allocation already claimed: " + strconv.FormatInt(e.ID, 10)
}

// ErrEscrowEntryNotFound indicates missing escrow entry
type ErrEscrowEntryNotFound struct {
	ID int64
}

func (e ErrEscrowEntryNotFound) Error() string {
	return "escrow entry not found: " + strconv.FormatInt(e.ID, 10)
}
