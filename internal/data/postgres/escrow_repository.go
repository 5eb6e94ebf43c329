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

// EscrowRepository implements the allocation.EscrowRepository interface for PostgreSQL
type EscrowRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEscrowRepository creates a new PostgreSQL escrow entry repository
func NewEscrowRepository(logger *slog.Logger, db *persistence.PostgresDB) allocation.EscrowRepository {
	return &EscrowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *EscrowRepository) WithTx(tx pgx.Tx) allocation.EscrowRepository {
	return &EscrowRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new escrow history entry in pending status
func (r *EscrowRepository) Create(ctx context.Context, entry *allocation.EscrowEntry) error {
	query := `
		INSERT INTO escrow_entries (user_id, content_id, tip_entry_id, amount, remaining_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		entry.UserID,
		entry.ContentID,
		entry.TipEntryID,
		entry.Amount,
		entry.RemainingAmount,
		entry.Status,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to create escrow entry",
			"user_id", entry.UserID.String(),
			"tip_entry_id", entry.TipEntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create escrow entry: %w", err)
	}

	return nil
}

// GetByUserID retrieves paginated escrow history for a user, oldest first
func (r *EscrowRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*allocation.EscrowEntry, error) {
	query := `
		SELECT id, user_id, content_id, tip_entry_id, amount, remaining_amount, status, created_at, claimed_at
		FROM escrow_entries
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get escrow entries", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow entries: %w", err)
	}
	defer rows.Close()

	return scanEscrowEntries(rows)
}

// ConsumeFIFO claims pending escrow entries oldest-first until amount is
// covered. Entries are locked for the duration of the enclosing
// transaction; only the entries whose cumulative amount the payout covers
// are touched, and an entry consumed partway keeps its unconsumed remainder
// pending. Marking everything claimed regardless of payout size would be an
// invariant violation.
func (r *EscrowRepository) ConsumeFIFO(ctx context.Context, userID uuid.UUID, amount int64) ([]*allocation.EscrowEntry, error) {
	selectQuery := `
		SELECT id, user_id, content_id, tip_entry_id, amount, remaining_amount, status, created_at, claimed_at
		FROM escrow_entries
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, selectQuery, userID, allocation.EscrowEntryStatusPending)
	if err != nil {
		r.logger.Error("Failed to lock pending escrow entries", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock pending escrow entries: %w", err)
	}
	pending, err := scanEscrowEntries(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	var consumed []*allocation.EscrowEntry
	remaining := amount
	for _, entry := range pending {
		if remaining <= 0 {
			break
		}

		take := entry.RemainingAmount
		if take > remaining {
			take = remaining
		}
		entry.RemainingAmount -= take
		remaining -= take

		if entry.RemainingAmount == 0 {
			entry.Status = allocation.EscrowEntryStatusClaimed
		}

		updateQuery := `
			UPDATE escrow_entries
			SET remaining_amount = $2, status = $3, claimed_at = CASE WHEN $3 = $4 THEN NOW() ELSE claimed_at END
			WHERE id = $1
		`
		if _, err := r.querier.Exec(ctx, updateQuery,
			entry.ID, entry.RemainingAmount, entry.Status, allocation.EscrowEntryStatusClaimed,
		); err != nil {
			r.logger.Error("Failed to consume escrow entry", "id", entry.ID, "error", err)
			return nil, fmt.Errorf("failed to consume escrow entry %d: %w", entry.ID, err)
		}

		consumed = append(consumed, entry)
	}

	if remaining > 0 {
		// The escrow balance debit already succeeded in this transaction, so
		// history lagging the balance means the two stores have diverged.
		r.logger.Warn("Escrow history did not cover payout amount",
			"user_id", userID.String(),
			"uncovered", remaining,
		)
	}

	return consumed, nil
}

func scanEscrowEntries(rows pgx.Rows) ([]*allocation.EscrowEntry, error) {
	var entries []*allocation.EscrowEntry
	for rows.Next() {
		var e allocation.EscrowEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ContentID, &e.TipEntryID,
			&e.Amount, &e.RemainingAmount, &e.Status, &e.CreatedAt, &e.ClaimedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan escrow entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read escrow entries: %w", err)
	}
	return entries, nil
}
