package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/domain/wallet"
	"github.com/tuneable/tipledger/internal/event_processor/service"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

type RevenueAllocatorImpl struct {
	db          persistence.TxBeginner
	walletRepo  wallet.Repository
	escrowRepo  allocation.EscrowRepository
	pendingRepo allocation.PendingRepository
	logger      *slog.Logger
}

func NewRevenueAllocator(
	db persistence.TxBeginner,
	walletRepo wallet.Repository,
	escrowRepo allocation.EscrowRepository,
	pendingRepo allocation.PendingRepository,
	logger *slog.Logger,
) service.RevenueAllocator {
	return &RevenueAllocatorImpl{
		db:          db,
		walletRepo:  walletRepo,
		escrowRepo:  escrowRepo,
		pendingRepo: pendingRepo,
		logger:      logger,
	}
}

// MatchPending claims every unclaimed allocation whose match key matches the
// verified identity and moves the amounts into the user's escrow balance.
// Claims already taken by a concurrent verification are skipped, not failed:
// the claim flag flips exactly once per allocation.
func (a *RevenueAllocatorImpl) MatchPending(ctx context.Context, event *shared.Event) (claimed []*allocation.PendingAllocation, err error) {
	logger := a.logger
	if event.CorrelationID != "" {
		logger = a.logger.With("correlation_id", event.CorrelationID)
	}

	identityKey := allocation.NormalizeMatchKey(event.IdentityKey, "")

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "event_id", event.EventID.String())
			}
		}
	}()

	pendingTx := a.pendingRepo.WithTx(tx)
	walletTx := a.walletRepo.WithTx(tx)
	escrowTx := a.escrowRepo.WithTx(tx)

	matches, err := pendingTx.FindMatches(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		_ = tx.Rollback(ctx)
		logger.Info("No pending allocations matched identity", "identity_key", identityKey)
		return nil, nil
	}

	now := time.Now().UTC()
	for _, match := range matches {
		if claimErr := pendingTx.Claim(ctx, match.ID, event.ActorID); claimErr != nil {
			if errors.Is(claimErr, allocation.ErrAlreadyClaimed{ID: match.ID}) {
				logger.Info("Pending allocation claimed concurrently, skipping", "allocation_id", match.ID)
				continue
			}
			err = claimErr
			return nil, err
		}

		if _, creditErr := walletTx.CreditEscrow(ctx, event.ActorID, match.Amount); creditErr != nil {
			err = creditErr
			return nil, err
		}

		escrowEntry := &allocation.EscrowEntry{
			UserID:          event.ActorID,
			ContentID:       match.ContentID,
			TipEntryID:      match.TipEntryID,
			Amount:          match.Amount,
			RemainingAmount: match.Amount,
			Status:          allocation.EscrowEntryStatusPending,
			CreatedAt:       now,
		}
		if err = escrowTx.Create(ctx, escrowEntry); err != nil {
			return nil, err
		}

		match.Claimed = true
		match.ClaimedBy = &event.ActorID
		match.ClaimedAt = &now
		claimed = append(claimed, match)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	logger.Info("Pending allocations claimed",
		"identity_key", identityKey,
		"user_id", event.ActorID.String(),
		"claimed", len(claimed))
	return claimed, nil
}
