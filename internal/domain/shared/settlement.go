package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProcessedSettlement records a payment-provider reference that already
// produced a TOP_UP entry. Webhook-style callbacks are retried by providers;
// the unique reference is the idempotency barrier.
type ProcessedSettlement struct {
	ProviderReference string    `json:"provider_reference"`
	ActorID           uuid.UUID `json:"actor_id"`
	Amount            int64     `json:"amount"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// SettlementRepository manages settlement idempotency persistence
type SettlementRepository interface {
	// MarkProcessed records the provider reference, failing with
	// ErrDuplicateSettlement if it was already recorded. Called in the same
	// transaction as the balance credit so a retry can never double-credit.
	MarkProcessed(ctx context.Context, settlement *ProcessedSettlement) error

	GetByReference(ctx context.Context, providerReference string) (*ProcessedSettlement, error)
	WithTx(tx pgx.Tx) SettlementRepository
}
