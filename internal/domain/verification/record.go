package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status defines verification record states
type Status string

const (
	StatusUnverified Status = "UNVERIFIED"
	StatusVerified   Status = "VERIFIED"
	StatusMismatch   Status = "MISMATCH"
)

// Record pairs a ledger entry with the integrity hash computed at creation
// time. OriginalHash is write-once; only LastObservedHash, Status and the
// counters change, exclusively through the verification routine. Records
// live in a collection separate from the entries they guard so that an edit
// to an entry cannot silently carry its hash along.
type Record struct {
	RecordID          uuid.UUID  `json:"record_id" bson:"record_id"`
	EntryID           uuid.UUID  `json:"entry_id" bson:"entry_id"`
	OriginalHash      string     `json:"original_hash" bson:"original_hash"`
	LastObservedHash  string     `json:"last_observed_hash,omitempty" bson:"last_observed_hash,omitempty"`
	Status            Status     `json:"status" bson:"status"`
	VerificationCount int64      `json:"verification_count" bson:"verification_count"`
	MismatchCount     int64      `json:"mismatch_count" bson:"mismatch_count"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	LastVerifiedAt    *time.Time `json:"last_verified_at,omitempty" bson:"last_verified_at,omitempty"`
}

// Stats summarizes the verification collection for the operator surface
type Stats struct {
	Total      int64 `json:"total"`
	Unverified int64 `json:"unverified"`
	Verified   int64 `json:"verified"`
	Mismatched int64 `json:"mismatched"`
}

// Repository manages verification record persistence
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Record, error)

	// RecordResult updates the observed hash, status and counters after a
	// verification pass. OriginalHash is never touched.
	RecordResult(ctx context.Context, entryID uuid.UUID, observedHash string, match bool) error

	CountByStatus(ctx context.Context) (*Stats, error)
	ListMismatched(ctx context.Context, limit int) ([]*Record, error)
}

// ErrRecordNotFound indicates a ledger entry with no verification record,
// typically one written before verification was enabled, not tampering.
type ErrRecordNotFound struct {
	EntryID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "verification record not found for entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrStorage wraps failures persisting a verification record. It is
// non-fatal at the ledger write path: verification is a detection layer,
// never a transactional participant.
type ErrStorage struct {
	EntryID uuid.UUID
	Err     error
}

func (e ErrStorage) Error() string {
	return "failed to store verification data for entry " + e.EntryID.String() + ": " + e.Err.Error()
}

func (e ErrStorage) Unwrap() error {
	return e.Err
}
