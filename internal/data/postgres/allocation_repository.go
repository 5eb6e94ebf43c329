package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

// PendingAllocationRepository implements the allocation.PendingRepository
// interface for PostgreSQL
type PendingAllocationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPendingAllocationRepository creates a new PostgreSQL pending allocation repository
func NewPendingAllocationRepository(logger *slog.Logger, db *persistence.PostgresDB) allocation.PendingRepository {
	return &PendingAllocationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *PendingAllocationRepository) WithTx(tx pgx.Tx) allocation.PendingRepository {
	return &PendingAllocationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new unclaimed allocation
func (r *PendingAllocationRepository) Create(ctx context.Context, pending *allocation.PendingAllocation) error {
	query := `
		INSERT INTO pending_allocations (content_id, tip_entry_id, payee_name, channel_ref, match_key, amount, claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		pending.ContentID,
		pending.TipEntryID,
		pending.PayeeName,
		pending.ChannelRef,
		pending.MatchKey,
		pending.Amount,
		pending.Claimed,
		pending.CreatedAt,
	).Scan(&pending.ID)
	if err != nil {
		r.logger.Error("Failed to create pending allocation",
			"payee_name", pending.PayeeName,
			"tip_entry_id", pending.TipEntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create pending allocation: %w", err)
	}

	return nil
}

// ListUnclaimed retrieves unclaimed allocations, oldest first
func (r *PendingAllocationRepository) ListUnclaimed(ctx context.Context, limit int) ([]*allocation.PendingAllocation, error) {
	query := `
		SELECT id, content_id, tip_entry_id, payee_name, channel_ref, match_key, amount, claimed, claimed_by, created_at, claimed_at
		FROM pending_allocations
		WHERE claimed = FALSE
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list unclaimed allocations", "error", err)
		return nil, fmt.Errorf("failed to list unclaimed allocations: %w", err)
	}
	defer rows.Close()

	return scanPendingAllocations(rows)
}

// FindMatches returns unclaimed allocations whose match key fuzzy-matches
// the identity key. The coarse filtering happens in SQL with strpos, the
// same plain-substring containment allocation.KeysMatch applies, so keys
// holding LIKE metacharacters cannot over-match. The Go-side re-check keeps
// one definition of a match for both call sites.
func (r *PendingAllocationRepository) FindMatches(ctx context.Context, identityKey string) ([]*allocation.PendingAllocation, error) {
	query := `
		SELECT id, content_id, tip_entry_id, payee_name, channel_ref, match_key, amount, claimed, claimed_by, created_at, claimed_at
		FROM pending_allocations
		WHERE claimed = FALSE
		  AND (strpos(match_key, $1) > 0 OR strpos($1, match_key) > 0)
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, identityKey)
	if err != nil {
		r.logger.Error("Failed to find matching pending allocations", "identity_key", identityKey, "error", err)
		return nil, fmt.Errorf("failed to find matching pending allocations: %w", err)
	}
	defer rows.Close()

	candidates, err := scanPendingAllocations(rows)
	if err != nil {
		return nil, err
	}

	matches := make([]*allocation.PendingAllocation, 0, len(candidates))
	for _, c := range candidates {
		if allocation.KeysMatch(c.MatchKey, identityKey) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// Claim marks an allocation claimed by the given user. The claimed = FALSE
// predicate makes the claim atomic: a concurrent claim that got there first
// leaves no row to match.
func (r *PendingAllocationRepository) Claim(ctx context.Context, id int64, userID uuid.UUID) error {
	query := `
		UPDATE pending_allocations
		SET claimed = TRUE, claimed_by = $2, claimed_at = NOW()
		WHERE id = $1 AND claimed = FALSE
	`

	result, err := r.querier.Exec(ctx, query, id, userID)
	if err != nil {
		r.logger.Error("Failed to claim pending allocation", "id", id, "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to claim pending allocation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return allocation.ErrAlreadyClaimed{ID: id}
	}

	return nil
}

func scanPendingAllocations(rows pgx.Rows) ([]*allocation.PendingAllocation, error) {
	var allocations []*allocation.PendingAllocation
	for rows.Next() {
		var p allocation.PendingAllocation
		if err := rows.Scan(
			&p.ID, &p.ContentID, &p.TipEntryID, &p.PayeeName, &p.ChannelRef,
			&p.MatchKey, &p.Amount, &p.Claimed, &p.ClaimedBy, &p.CreatedAt, &p.ClaimedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending allocation: %w", err)
		}
		allocations = append(allocations, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending allocations: %w", err)
	}
	return allocations, nil
}
