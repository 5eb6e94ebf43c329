package verification

import (
	"context"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
)

// In-memory fakes; the verification routine is pure bookkeeping over its two
// repositories, so fakes exercise it end to end without a database.

type fakeRecordRepo struct {
	records map[uuid.UUID]*Record
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[uuid.UUID]*Record)}
}

func (r *fakeRecordRepo) Create(ctx context.Context, record *Record) error {
	copied := *record
	r.records[record.EntryID] = &copied
	return nil
}

func (r *fakeRecordRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Record, error) {
	record, ok := r.records[entryID]
	if !ok {
		return nil, ErrRecordNotFound{EntryID: entryID}
	}
	copied := *record
	return &copied, nil
}

func (r *fakeRecordRepo) RecordResult(ctx context.Context, entryID uuid.UUID, observedHash string, match bool) error {
	record, ok := r.records[entryID]
	if !ok {
		return ErrRecordNotFound{EntryID: entryID}
	}
	now := time.Now().UTC()
	record.LastObservedHash = observedHash
	record.VerificationCount++
	record.LastVerifiedAt = &now
	if match {
		record.Status = StatusVerified
	} else {
		record.Status = StatusMismatch
		record.MismatchCount++
	}
	return nil
}

func (r *fakeRecordRepo) CountByStatus(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	for _, record := range r.records {
		stats.Total++
		switch record.Status {
		case StatusUnverified:
			stats.Unverified++
		case StatusVerified:
			stats.Verified++
		case StatusMismatch:
			stats.Mismatched++
		}
	}
	return stats, nil
}

func (r *fakeRecordRepo) ListMismatched(ctx context.Context, limit int) ([]*Record, error) {
	var out []*Record
	for _, record := range r.records {
		if record.Status == StatusMismatch {
			copied := *record
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeEntryRepo struct {
	entries []*ledger.Entry
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *ledger.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeEntryRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	for _, entry := range r.entries {
		if entry.EntryID == entryID {
			return entry, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{EntryID: entryID}
}

func (r *fakeEntryRepo) GetByActorID(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	return nil, nil
}

func (r *fakeEntryRepo) CountByActorID(ctx context.Context, actorID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *fakeEntryRepo) List(ctx context.Context, transactionType shared.TransactionType, limit, offset int) ([]*ledger.Entry, error) {
	var filtered []*ledger.Entry
	for _, entry := range r.entries {
		if transactionType == "" || entry.Type == transactionType {
			filtered = append(filtered, entry)
		}
	}
	if offset >= len(filtered) {
		return nil, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func (r *fakeEntryRepo) Count(ctx context.Context, transactionType shared.TransactionType) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *fakeEntryRepo) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Entry, error) {
	return nil, nil
}

func (r *fakeEntryRepo) ActiveTipTotal(ctx context.Context) (int64, error) {
	return 0, nil
}

func makeTipEntry(t *testing.T) *ledger.Entry {
	t.Helper()
	contentID := uuid.New()
	entry, err := ledger.NewTipEntry(uuid.New(), &contentID, nil, 500,
		ledger.Snapshot{Pre: 1000, Post: 500},
		ledger.Snapshot{Pre: 0, Post: 500},
		ledger.Snapshot{Pre: 0, Post: 500},
		ledger.Snapshot{Pre: 0, Post: 500})
	require.NoError(t, err)
	return entry
}

func TestComputeHash_Deterministic(t *testing.T) {
	entry := makeTipEntry(t)

	first := ComputeHash(entry)
	second := ComputeHash(entry)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	other := makeTipEntry(t)
	assert.NotEqual(t, first, ComputeHash(other))
}

func TestComputeHash_SensitiveToCriticalFields(t *testing.T) {
	entry := makeTipEntry(t)
	original := ComputeHash(entry)

	tampered := *entry
	tampered.Amount = 400
	assert.NotEqual(t, original, ComputeHash(&tampered))

	tampered = *entry
	tampered.Balance.Post += 100
	assert.NotEqual(t, original, ComputeHash(&tampered))

	tampered = *entry
	tampered.Type = shared.TransactionTypeRefund
	assert.NotEqual(t, original, ComputeHash(&tampered))
}

func TestComputeHash_IgnoresDisplayFields(t *testing.T) {
	entry := makeTipEntry(t)
	original := ComputeHash(entry)

	relabeled := *entry
	relabeled.ActorName = "renamed user"
	relabeled.ContentTitle = "renamed stream"
	assert.Equal(t, original, ComputeHash(&relabeled))
}

func TestComputeHash_StableAcrossStorageRoundTrip(t *testing.T) {
	entry := makeTipEntry(t)
	original := ComputeHash(entry)

	raw, err := bson.Marshal(entry)
	require.NoError(t, err)

	var stored ledger.Entry
	require.NoError(t, bson.Unmarshal(raw, &stored))

	// Mongo datetimes hold millisecond precision; the timestamp must come
	// back exactly as written or every re-verification would mismatch.
	assert.Equal(t, entry.CreatedAt.UnixNano(), stored.CreatedAt.UnixNano())
	assert.Equal(t, original, ComputeHash(&stored))
}

func TestService_VerifyEntry(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecordRepo()
	entries := &fakeEntryRepo{}
	svc := NewService(records, entries, slog.Default())

	entry := makeTipEntry(t)
	require.NoError(t, entries.Create(ctx, entry))
	require.NoError(t, svc.StoreHash(ctx, entry))

	t.Run("untampered entry verifies", func(t *testing.T) {
		record, err := svc.VerifyEntry(ctx, entry.EntryID)
		require.NoError(t, err)
		assert.Equal(t, StatusVerified, record.Status)
		assert.Equal(t, record.OriginalHash, record.LastObservedHash)
		assert.Equal(t, int64(1), record.VerificationCount)
		assert.Equal(t, int64(0), record.MismatchCount)
		assert.NotNil(t, record.LastVerifiedAt)
	})

	t.Run("tampered entry is flagged", func(t *testing.T) {
		entry.Amount = 50 // Simulated direct store edit

		record, err := svc.VerifyEntry(ctx, entry.EntryID)
		require.NoError(t, err)
		assert.Equal(t, StatusMismatch, record.Status)
		assert.NotEqual(t, record.OriginalHash, record.LastObservedHash)
		assert.Equal(t, int64(1), record.MismatchCount)
	})

	t.Run("original hash never changes", func(t *testing.T) {
		stored, err := records.GetByEntryID(ctx, entry.EntryID)
		require.NoError(t, err)

		_, err = svc.VerifyEntry(ctx, entry.EntryID)
		require.NoError(t, err)

		after, err := records.GetByEntryID(ctx, entry.EntryID)
		require.NoError(t, err)
		assert.Equal(t, stored.OriginalHash, after.OriginalHash)
		assert.Equal(t, int64(2), after.MismatchCount)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := svc.VerifyEntry(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrRecordNotFound{})
	})
}

func TestService_VerifyAll(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecordRepo()
	entries := &fakeEntryRepo{}
	svc := NewService(records, entries, slog.Default())

	// Three guarded entries, one of them tampered, plus one entry that
	// predates hash storage.
	guarded := make([]*ledger.Entry, 3)
	for i := range guarded {
		guarded[i] = makeTipEntry(t)
		require.NoError(t, entries.Create(ctx, guarded[i]))
		require.NoError(t, svc.StoreHash(ctx, guarded[i]))
	}
	guarded[1].Amount = 1

	unguarded := makeTipEntry(t)
	require.NoError(t, entries.Create(ctx, unguarded))

	result, err := svc.VerifyAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Checked)
	assert.Equal(t, int64(2), result.Verified)
	assert.Equal(t, int64(1), result.Mismatched)
	assert.Equal(t, int64(1), result.Unguarded)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Verified)
	assert.Equal(t, int64(1), stats.Mismatched)

	anomalies, err := svc.Anomalies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, guarded[1].EntryID, anomalies[0].EntryID)
}
