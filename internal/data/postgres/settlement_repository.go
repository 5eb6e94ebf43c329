package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

// SettlementRepository implements the shared.SettlementRepository interface
// for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement repository
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) shared.SettlementRepository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *SettlementRepository) WithTx(tx pgx.Tx) shared.SettlementRepository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// MarkProcessed records a provider reference, returning ErrDuplicateSettlement
// when the reference was already recorded
func (r *SettlementRepository) MarkProcessed(ctx context.Context, settlement *shared.ProcessedSettlement) error {
	query := `
		INSERT INTO processed_settlements (provider_reference, actor_id, amount, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_reference) DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, query,
		settlement.ProviderReference,
		settlement.ActorID,
		settlement.Amount,
		settlement.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record processed settlement",
			"provider_reference", settlement.ProviderReference,
			"error", err)
		return fmt.Errorf("failed to record processed settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrDuplicateSettlement
	}

	return nil
}

// GetByReference retrieves a processed settlement by its provider reference
func (r *SettlementRepository) GetByReference(ctx context.Context, providerReference string) (*shared.ProcessedSettlement, error) {
	query := `
		SELECT provider_reference, actor_id, amount, processed_at
		FROM processed_settlements
		WHERE provider_reference = $1
	`

	settlement := &shared.ProcessedSettlement{}
	err := r.querier.QueryRow(ctx, query, providerReference).Scan(
		&settlement.ProviderReference,
		&settlement.ActorID,
		&settlement.Amount,
		&settlement.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrSettlementNotFound
		}
		r.logger.Error("Failed to get processed settlement",
			"provider_reference", providerReference,
			"error", err)
		return nil, fmt.Errorf("failed to get processed settlement: %w", err)
	}

	return settlement, nil
}
