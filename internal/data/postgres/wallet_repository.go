// Package postgres provides PostgreSQL implementations of the domain repositories.
// Balance mutations are single-statement conditional updates that evaluate
// their precondition and capture pre/post snapshots atomically, so racing
// operations on the same wallet cannot lose updates.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tuneable/tipledger/internal/domain/wallet"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (user_id, username, balance, lifetime_tipped, escrow_balance, bonus_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		w.UserID,
		w.Username,
		w.Balance,
		w.LifetimeTipped,
		w.EscrowBalance,
		w.BonusBalance,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create wallet", "user_id", w.UserID.String(), "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByID retrieves a wallet by its user ID
func (r *WalletRepository) GetByID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT user_id, username, balance, lifetime_tipped, escrow_balance, bonus_balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&w.UserID,
		&w.Username,
		&w.Balance,
		&w.LifetimeTipped,
		&w.EscrowBalance,
		&w.BonusBalance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get wallet", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// DebitForTip moves amount from the spendable balance into the lifetime
// aggregate. The balance precondition is part of the UPDATE itself: if the
// row no longer satisfies it at apply time the statement matches nothing and
// the tip fails, regardless of what the caller read earlier.
func (r *WalletRepository) DebitForTip(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $2, lifetime_tipped = lifetime_tipped + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING username, balance + $2, balance, lifetime_tipped - $2, lifetime_tipped
	`

	var m wallet.Mutation
	err := r.querier.QueryRow(ctx, query, userID, amount).Scan(
		&m.Username, &m.Pre, &m.Post, &m.LifetimePre, &m.LifetimePost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyConditionalMiss(ctx, userID, wallet.ErrInsufficientFunds)
		}
		r.logger.Error("Failed to debit wallet for tip", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to debit wallet for tip: %w", err)
	}

	return &m, nil
}

// CreditRefund reverses a tip. The lifetime aggregate decrement clamps at
// zero; the returned snapshots record the actual values so the caller can
// detect and log a clamp.
func (r *WalletRepository) CreditRefund(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $2, lifetime_tipped = GREATEST(lifetime_tipped - $2, 0), updated_at = NOW()
		FROM (SELECT user_id AS prev_id, balance AS prev_balance, lifetime_tipped AS prev_lifetime FROM wallets WHERE user_id = $1 FOR UPDATE) prev
		WHERE wallets.user_id = prev.prev_id
		RETURNING username, prev.prev_balance, balance, prev.prev_lifetime, lifetime_tipped
	`

	var m wallet.Mutation
	err := r.querier.QueryRow(ctx, query, userID, amount).Scan(
		&m.Username, &m.Pre, &m.Post, &m.LifetimePre, &m.LifetimePost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to credit refund", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to credit refund: %w", err)
	}

	return &m, nil
}

// CreditTopUp adds settled funds to the spendable balance
func (r *WalletRepository) CreditTopUp(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	return r.unconditionalCredit(ctx, userID, amount, "balance", "top up")
}

// CreditEscrow adds an allocated revenue share to the escrow balance
func (r *WalletRepository) CreditEscrow(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	return r.unconditionalCredit(ctx, userID, amount, "escrow_balance", "escrow credit")
}

// CreditBonus adds a non-withdrawable bonus credit
func (r *WalletRepository) CreditBonus(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	return r.unconditionalCredit(ctx, userID, amount, "bonus_balance", "bonus credit")
}

// DebitEscrow removes amount from the escrow balance; the precondition
// escrow_balance >= amount is re-validated at apply time, not at request
// validation time, so concurrent payouts against the same wallet cannot
// both succeed.
func (r *WalletRepository) DebitEscrow(ctx context.Context, userID uuid.UUID, amount int64) (*wallet.Mutation, error) {
	query := `
		UPDATE wallets
		SET escrow_balance = escrow_balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND escrow_balance >= $2
		RETURNING username, escrow_balance + $2, escrow_balance, lifetime_tipped, lifetime_tipped
	`

	var m wallet.Mutation
	err := r.querier.QueryRow(ctx, query, userID, amount).Scan(
		&m.Username, &m.Pre, &m.Post, &m.LifetimePre, &m.LifetimePost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyConditionalMiss(ctx, userID, wallet.ErrInsufficientEscrow)
		}
		r.logger.Error("Failed to debit escrow balance", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to debit escrow balance: %w", err)
	}

	return &m, nil
}

// unconditionalCredit increments a single balance column with no
// precondition, returning pre/post from the same statement. column is one
// of the fixed balance column names, never user input.
func (r *WalletRepository) unconditionalCredit(ctx context.Context, userID uuid.UUID, amount int64, column, op string) (*wallet.Mutation, error) {
	query := fmt.Sprintf(`
		UPDATE wallets
		SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING username, %[1]s - $2, %[1]s, lifetime_tipped, lifetime_tipped
	`, column)

	var m wallet.Mutation
	err := r.querier.QueryRow(ctx, query, userID, amount).Scan(
		&m.Username, &m.Pre, &m.Post, &m.LifetimePre, &m.LifetimePost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to apply "+op, "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to apply %s: %w", op, err)
	}

	return &m, nil
}

// classifyConditionalMiss distinguishes a failed precondition from a missing
// wallet after a conditional update matched no row.
func (r *WalletRepository) classifyConditionalMiss(ctx context.Context, userID uuid.UUID, preconditionErr error) error {
	if _, err := r.GetByID(ctx, userID); err != nil {
		return err
	}
	return preconditionErr
}
