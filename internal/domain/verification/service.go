package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

// Service computes, stores and re-checks integrity hashes for ledger
// entries. It is the only writer of verification records.
type Service struct {
	records Repository
	entries ledger.Repository
	logger  *slog.Logger
}

func NewService(records Repository, entries ledger.Repository, logger *slog.Logger) *Service {
	return &Service{
		records: records,
		entries: entries,
		logger:  logger,
	}
}

// StoreHash computes the canonical hash of a freshly appended entry and
// stores it as the write-once original. Errors are wrapped in ErrStorage so
// callers can keep the balance path independent of the detection layer.
func (s *Service) StoreHash(ctx context.Context, entry *ledger.Entry) error {
	record := &Record{
		RecordID:     uuid.New(),
		EntryID:      entry.EntryID,
		OriginalHash: ComputeHash(entry),
		Status:       StatusUnverified,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		return ErrStorage{EntryID: entry.EntryID, Err: err}
	}
	return nil
}

// VerifyEntry recomputes the hash for one entry and compares it against the
// stored original. The outcome is persisted on the record either way.
func (s *Service) VerifyEntry(ctx context.Context, entryID uuid.UUID) (*Record, error) {
	record, err := s.records.GetByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	entry, err := s.entries.GetByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	observed := ComputeHash(entry)
	match := observed == record.OriginalHash
	if err := s.records.RecordResult(ctx, entryID, observed, match); err != nil {
		return nil, err
	}

	if !match {
		s.logger.Error("Ledger entry hash mismatch",
			"anomaly", "hash_mismatch",
			"entry_id", entryID.String(),
			"original_hash", record.OriginalHash,
			"observed_hash", observed)
	}

	now := time.Now().UTC()
	record.LastObservedHash = observed
	record.VerificationCount++
	record.LastVerifiedAt = &now
	if match {
		record.Status = StatusVerified
	} else {
		record.Status = StatusMismatch
		record.MismatchCount++
	}
	return record, nil
}

// SweepResult summarizes one verification pass over the ledger
type SweepResult struct {
	Checked    int64 `json:"checked"`
	Verified   int64 `json:"verified"`
	Mismatched int64 `json:"mismatched"`
	Unguarded  int64 `json:"unguarded"` // Entries with no verification record
}

// VerifyAll walks the whole ledger in batches and verifies every entry that
// has a record. Entries without a record predate hash storage and are
// counted, not flagged.
func (s *Service) VerifyAll(ctx context.Context, batchSize int) (*SweepResult, error) {
	return s.verifyBatches(ctx, "", batchSize)
}

// VerifyBatch is VerifyAll restricted to one transaction type.
func (s *Service) VerifyBatch(ctx context.Context, transactionType shared.TransactionType, batchSize int) (*SweepResult, error) {
	return s.verifyBatches(ctx, transactionType, batchSize)
}

func (s *Service) verifyBatches(ctx context.Context, transactionType shared.TransactionType, batchSize int) (*SweepResult, error) {
	result := &SweepResult{}
	offset := 0
	for {
		entries, err := s.entries.List(ctx, transactionType, batchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return result, nil
		}

		for _, entry := range entries {
			record, err := s.VerifyEntry(ctx, entry.EntryID)
			if err != nil {
				if errors.Is(err, ErrRecordNotFound{}) {
					result.Unguarded++
					continue
				}
				return nil, err
			}
			result.Checked++
			if record.Status == StatusMismatch {
				result.Mismatched++
			} else {
				result.Verified++
			}
		}

		offset += len(entries)
	}
}

// Stats reports the verification record counts by status
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.records.CountByStatus(ctx)
}

// Anomalies lists the records currently flagged as mismatched
func (s *Service) Anomalies(ctx context.Context, limit int) ([]*Record, error) {
	return s.records.ListMismatched(ctx, limit)
}
