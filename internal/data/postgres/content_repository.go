package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tuneable/tipledger/internal/domain/content"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

// ContentRepository implements the content.Repository interface for PostgreSQL
type ContentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewContentRepository creates a new PostgreSQL content repository
func NewContentRepository(logger *slog.Logger, db *persistence.PostgresDB) content.Repository {
	return &ContentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ContentRepository) WithTx(tx pgx.Tx) content.Repository {
	return &ContentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new content item
func (r *ContentRepository) Create(ctx context.Context, item *content.Item) error {
	query := `
		INSERT INTO content_items (content_id, title, tip_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ContentID,
		item.Title,
		item.TipTotal,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create content item", "content_id", item.ContentID.String(), "error", err)
		return fmt.Errorf("failed to create content item: %w", err)
	}

	return nil
}

// GetByID retrieves a content item by its ID
func (r *ContentRepository) GetByID(ctx context.Context, contentID uuid.UUID) (*content.Item, error) {
	query := `
		SELECT content_id, title, tip_total, created_at, updated_at
		FROM content_items
		WHERE content_id = $1
	`

	var item content.Item
	err := r.querier.QueryRow(ctx, query, contentID).Scan(
		&item.ContentID,
		&item.Title,
		&item.TipTotal,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrContentNotFound{ContentID: contentID}
		}
		r.logger.Error("Failed to get content item", "content_id", contentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	return &item, nil
}

// AddTip atomically increments the received-tips aggregate, returning
// pre/post from the applying statement.
func (r *ContentRepository) AddTip(ctx context.Context, contentID uuid.UUID, amount int64) (*content.AggregateMutation, error) {
	query := `
		UPDATE content_items
		SET tip_total = tip_total + $2, updated_at = NOW()
		WHERE content_id = $1
		RETURNING title, tip_total - $2, tip_total
	`

	var m content.AggregateMutation
	err := r.querier.QueryRow(ctx, query, contentID, amount).Scan(&m.Title, &m.Pre, &m.Post)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrContentNotFound{ContentID: contentID}
		}
		r.logger.Error("Failed to add tip to content aggregate", "content_id", contentID.String(), "error", err)
		return nil, fmt.Errorf("failed to add tip to content aggregate: %w", err)
	}

	return &m, nil
}

// SubtractRefund atomically decrements the aggregate, flooring at zero.
// The pre snapshot comes from a locked read in the same statement so a
// clamp is detectable by the caller.
func (r *ContentRepository) SubtractRefund(ctx context.Context, contentID uuid.UUID, amount int64) (*content.AggregateMutation, error) {
	query := `
		UPDATE content_items
		SET tip_total = GREATEST(tip_total - $2, 0), updated_at = NOW()
		FROM (SELECT content_id AS prev_id, tip_total AS prev_total FROM content_items WHERE content_id = $1 FOR UPDATE) prev
		WHERE content_items.content_id = prev.prev_id
		RETURNING title, prev.prev_total, tip_total
	`

	var m content.AggregateMutation
	err := r.querier.QueryRow(ctx, query, contentID, amount).Scan(&m.Title, &m.Pre, &m.Post)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrContentNotFound{ContentID: contentID}
		}
		r.logger.Error("Failed to subtract refund from content aggregate", "content_id", contentID.String(), "error", err)
		return nil, fmt.Errorf("failed to subtract refund from content aggregate: %w", err)
	}

	m.Clamped = m.Pre-amount < 0
	return &m, nil
}

// GetShares returns the ownership shares configured for a content item
func (r *ContentRepository) GetShares(ctx context.Context, contentID uuid.UUID) ([]content.OwnershipShare, error) {
	query := `
		SELECT content_id, payee_name, channel_ref, user_id, percentage
		FROM content_shares
		WHERE content_id = $1
		ORDER BY percentage DESC, payee_name ASC
	`

	rows, err := r.querier.Query(ctx, query, contentID)
	if err != nil {
		r.logger.Error("Failed to get ownership shares", "content_id", contentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ownership shares: %w", err)
	}
	defer rows.Close()

	var shares []content.OwnershipShare
	for rows.Next() {
		var s content.OwnershipShare
		if err := rows.Scan(&s.ContentID, &s.PayeeName, &s.ChannelRef, &s.UserID, &s.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan ownership share: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ownership shares: %w", err)
	}

	return shares, nil
}
