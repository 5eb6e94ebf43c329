package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

// Repository manages append-only ledger entry persistence. Entries are never
// updated or deleted through this interface.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	GetByActorID(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByActorID(ctx context.Context, actorID uuid.UUID) (int64, error)

	// List pages through entries filtered by type ("" for all), oldest first,
	// for verification sweeps.
	List(ctx context.Context, transactionType shared.TransactionType, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context, transactionType shared.TransactionType) (int64, error)

	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)

	// ActiveTipTotal recomputes the platform-wide sum of currently active
	// tips (TIP amounts minus REFUND amounts, floored at zero) from the
	// authoritative record set. It is never maintained as a cached counter.
	ActiveTipTotal(ctx context.Context) (int64, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates entry uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
