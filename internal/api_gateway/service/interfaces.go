package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/domain/verification"
	"github.com/tuneable/tipledger/internal/domain/wallet"
)

// WalletService defines the interface for wallet read and registration operations
type WalletService interface {
	// CreateWallet registers a new wallet
	// Returns ErrDuplicateWallet if a wallet already exists for the user
	CreateWallet(ctx context.Context, userID uuid.UUID, username string, initialBalance int64) (*wallet.Wallet, error)

	// GetWalletByID retrieves a wallet by its user ID
	// Returns ErrWalletNotFound if the wallet doesn't exist
	GetWalletByID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)

	// GetLedgerByUserID retrieves the paginated ledger history for a user
	// Returns entries, total count, and any error
	GetLedgerByUserID(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// GetEscrowHistory retrieves the wallet together with its paginated
	// escrow allocation history
	GetEscrowHistory(ctx context.Context, userID uuid.UUID, page, perPage int) (*wallet.Wallet, []*allocation.EscrowEntry, error)
}

// EventService defines the interface for publishing domain events
type EventService interface {
	// PublishEvent publishes the event envelope to Kafka. Processing is
	// asynchronous; the caller only learns that the event was accepted.
	PublishEvent(ctx context.Context, event *shared.Event) error
}

// VerificationService defines the operator surface for integrity checks.
// Satisfied by the domain verification service.
type VerificationService interface {
	VerifyEntry(ctx context.Context, entryID uuid.UUID) (*verification.Record, error)
	Stats(ctx context.Context) (*verification.Stats, error)
	Anomalies(ctx context.Context, limit int) ([]*verification.Record, error)
}
