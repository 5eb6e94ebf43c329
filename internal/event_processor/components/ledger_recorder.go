package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/content"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/domain/wallet"
	"github.com/tuneable/tipledger/internal/event_processor/service"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

type LedgerRecorderImpl struct {
	db                  persistence.TxBeginner
	walletRepo          wallet.Repository
	contentRepo         content.Repository
	escrowRepo          allocation.EscrowRepository
	pendingRepo         allocation.PendingRepository
	settlementRepo      shared.SettlementRepository
	ledgerRepo          ledger.Repository
	verifier            service.Verifier
	creatorSharePercent int
	logger              *slog.Logger
}

func NewLedgerRecorder(
	db persistence.TxBeginner,
	walletRepo wallet.Repository,
	contentRepo content.Repository,
	escrowRepo allocation.EscrowRepository,
	pendingRepo allocation.PendingRepository,
	settlementRepo shared.SettlementRepository,
	ledgerRepo ledger.Repository,
	verifier service.Verifier,
	creatorSharePercent int,
	logger *slog.Logger,
) service.LedgerRecorder {
	return &LedgerRecorderImpl{
		db:                  db,
		walletRepo:          walletRepo,
		contentRepo:         contentRepo,
		escrowRepo:          escrowRepo,
		pendingRepo:         pendingRepo,
		settlementRepo:      settlementRepo,
		ledgerRepo:          ledgerRepo,
		verifier:            verifier,
		creatorSharePercent: creatorSharePercent,
		logger:              logger,
	}
}

// RecordTip debits the tipper, raises the content and global aggregates,
// allocates the revenue split into escrow and appends the TIP entry. All
// relational mutations share one transaction; the entry append happens last
// so a storage failure anywhere rolls the whole event back.
func (r *LedgerRecorderImpl) RecordTip(ctx context.Context, event *shared.Event) (entry *ledger.Entry, err error) {
	logger := r.eventLogger(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer r.finishTx(ctx, tx, event, &err)

	mut, err := r.walletRepo.WithTx(tx).DebitForTip(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	aggMut, err := r.contentRepo.WithTx(tx).AddTip(ctx, *event.ContentID, event.Amount)
	if err != nil {
		return nil, err
	}

	globalPre, err := r.ledgerRepo.ActiveTipTotal(ctx)
	if err != nil {
		return nil, err
	}

	entry, err = ledger.NewTipEntry(event.ActorID, event.ContentID, event.SessionID, event.Amount,
		ledger.Snapshot{Pre: mut.Pre, Post: mut.Post},
		ledger.Snapshot{Pre: mut.LifetimePre, Post: mut.LifetimePost},
		ledger.Snapshot{Pre: aggMut.Pre, Post: aggMut.Post},
		ledger.Snapshot{Pre: globalPre, Post: globalPre + event.Amount})
	if err != nil {
		return nil, err
	}
	entry.ActorName = mut.Username
	entry.ContentTitle = aggMut.Title
	entry.CorrelationID = event.CorrelationID

	split, err := r.allocate(ctx, tx, event, entry, logger)
	if err != nil {
		return nil, err
	}
	entry.Metadata = map[string]string{
		"creator_pool":  strconv.FormatInt(split.CreatorPool, 10),
		"platform_take": strconv.FormatInt(split.PlatformTake, 10),
	}
	if split.Normalized {
		entry.Metadata["shares_normalized"] = "true"
	}

	if err = r.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	r.storeHash(ctx, entry, logger)
	logger.Info("Tip recorded", "entry_id", entry.EntryID.String(), "amount", event.Amount)
	return entry, nil
}

// allocate applies the revenue split for a tip inside the caller's
// transaction. Registered payees get an immediate escrow credit; unknown
// payees get a pending allocation keyed for later identity matching.
func (r *LedgerRecorderImpl) allocate(ctx context.Context, tx pgx.Tx, event *shared.Event, entry *ledger.Entry, logger *slog.Logger) (*allocation.Split, error) {
	shares, err := r.contentRepo.WithTx(tx).GetShares(ctx, *event.ContentID)
	if err != nil {
		return nil, err
	}

	split, err := allocation.SplitTip(event.Amount, r.creatorSharePercent, shares)
	if err != nil {
		return nil, err
	}
	if split.Normalized {
		logger.Warn("Ownership shares did not sum to 100, normalized proportionally",
			"anomaly", "shares_normalized",
			"content_id", event.ContentID.String())
	}

	walletTx := r.walletRepo.WithTx(tx)
	escrowTx := r.escrowRepo.WithTx(tx)
	pendingTx := r.pendingRepo.WithTx(tx)
	now := time.Now().UTC()

	for _, ps := range split.PayeeShares {
		if ps.Amount <= 0 {
			continue
		}
		if ps.Share.UserID != nil {
			if _, err := walletTx.CreditEscrow(ctx, *ps.Share.UserID, ps.Amount); err != nil {
				return nil, err
			}
			escrowEntry := &allocation.EscrowEntry{
				UserID:          *ps.Share.UserID,
				ContentID:       *event.ContentID,
				TipEntryID:      entry.EntryID,
				Amount:          ps.Amount,
				RemainingAmount: ps.Amount,
				Status:          allocation.EscrowEntryStatusPending,
				CreatedAt:       now,
			}
			if err := escrowTx.Create(ctx, escrowEntry); err != nil {
				return nil, err
			}
			continue
		}
		pending := &allocation.PendingAllocation{
			ContentID:  *event.ContentID,
			TipEntryID: entry.EntryID,
			PayeeName:  ps.Share.PayeeName,
			ChannelRef: ps.Share.ChannelRef,
			MatchKey:   allocation.NormalizeMatchKey(ps.Share.PayeeName, ps.Share.ChannelRef),
			Amount:     ps.Amount,
			CreatedAt:  now,
		}
		if err := pendingTx.Create(ctx, pending); err != nil {
			return nil, err
		}
	}

	return split, nil
}

// RecordRefund reverses a tip. Aggregates decrease clamped at zero; a clamp
// means the books already disagreed with the refund and is surfaced as an
// anomaly rather than an error.
func (r *LedgerRecorderImpl) RecordRefund(ctx context.Context, event *shared.Event) (entry *ledger.Entry, err error) {
	logger := r.eventLogger(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer r.finishTx(ctx, tx, event, &err)

	mut, err := r.walletRepo.WithTx(tx).CreditRefund(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	aggMut, err := r.contentRepo.WithTx(tx).SubtractRefund(ctx, *event.ContentID, event.Amount)
	if err != nil {
		return nil, err
	}
	if aggMut.Clamped || mut.LifetimePost != mut.LifetimePre-event.Amount {
		logger.Warn("Refund exceeded recorded aggregate, floored at zero",
			"anomaly", "refund_clamped",
			"content_id", event.ContentID.String(),
			"amount", event.Amount)
	}

	globalPre, err := r.ledgerRepo.ActiveTipTotal(ctx)
	if err != nil {
		return nil, err
	}
	globalPost := globalPre - event.Amount
	if globalPost < 0 {
		globalPost = 0
	}

	entry, err = ledger.NewRefundEntry(event.ActorID, event.ContentID, event.Amount,
		ledger.Snapshot{Pre: mut.Pre, Post: mut.Post},
		ledger.Snapshot{Pre: mut.LifetimePre, Post: mut.LifetimePost},
		ledger.Snapshot{Pre: aggMut.Pre, Post: aggMut.Post},
		ledger.Snapshot{Pre: globalPre, Post: globalPost})
	if err != nil {
		return nil, err
	}
	entry.ActorName = mut.Username
	entry.ContentTitle = aggMut.Title
	entry.ReferenceID = event.ReferenceID
	entry.ReferenceType = "tip"
	entry.CorrelationID = event.CorrelationID

	if err = r.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	r.storeHash(ctx, entry, logger)
	logger.Info("Refund recorded", "entry_id", entry.EntryID.String(), "amount", event.Amount)
	return entry, nil
}

// RecordTopUp credits settled external funds. The provider reference is the
// idempotency barrier: marking it processed and crediting the balance commit
// together, so a webhook retry can never double-credit.
func (r *LedgerRecorderImpl) RecordTopUp(ctx context.Context, event *shared.Event) (entry *ledger.Entry, err error) {
	logger := r.eventLogger(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer r.finishTx(ctx, tx, event, &err)

	err = r.settlementRepo.WithTx(tx).MarkProcessed(ctx, &shared.ProcessedSettlement{
		ProviderReference: event.ProviderReference,
		ActorID:           event.ActorID,
		Amount:            event.Amount,
		ProcessedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	mut, err := r.walletRepo.WithTx(tx).CreditTopUp(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	globalPre, err := r.ledgerRepo.ActiveTipTotal(ctx)
	if err != nil {
		return nil, err
	}

	entry, err = ledger.NewTopUpEntry(event.ActorID, event.Amount,
		ledger.Snapshot{Pre: mut.Pre, Post: mut.Post},
		ledger.Snapshot{Pre: globalPre, Post: globalPre})
	if err != nil {
		return nil, err
	}
	entry.ActorName = mut.Username
	entry.ReferenceID = event.ProviderReference
	entry.ReferenceType = "provider"
	entry.CorrelationID = event.CorrelationID

	if err = r.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	r.storeHash(ctx, entry, logger)
	logger.Info("Top-up recorded", "entry_id", entry.EntryID.String(), "amount", event.Amount)
	return entry, nil
}

// RecordPayout withdraws from the escrow balance and consumes the escrow
// history FIFO, so the payout provably drains the oldest allocations first.
func (r *LedgerRecorderImpl) RecordPayout(ctx context.Context, event *shared.Event) (entry *ledger.Entry, err error) {
	logger := r.eventLogger(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer r.finishTx(ctx, tx, event, &err)

	mut, err := r.walletRepo.WithTx(tx).DebitEscrow(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	consumed, err := r.escrowRepo.WithTx(tx).ConsumeFIFO(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	globalPre, err := r.ledgerRepo.ActiveTipTotal(ctx)
	if err != nil {
		return nil, err
	}

	entry, err = ledger.NewPayoutEntry(event.ActorID, event.Amount,
		ledger.Snapshot{Pre: mut.Pre, Post: mut.Post},
		ledger.Snapshot{Pre: globalPre, Post: globalPre})
	if err != nil {
		return nil, err
	}
	entry.ActorName = mut.Username
	entry.ReferenceID = event.ReferenceID
	entry.ReferenceType = "payout_request"
	entry.CorrelationID = event.CorrelationID
	entry.Metadata = map[string]string{
		"escrow_entries_consumed": strconv.Itoa(len(consumed)),
	}

	if err = r.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	r.storeHash(ctx, entry, logger)
	logger.Info("Payout recorded", "entry_id", entry.EntryID.String(), "amount", event.Amount)
	return entry, nil
}

// RecordBonusCredit grants a non-withdrawable credit to the bonus balance.
func (r *LedgerRecorderImpl) RecordBonusCredit(ctx context.Context, event *shared.Event) (entry *ledger.Entry, err error) {
	logger := r.eventLogger(event)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin DB transaction for event %s: %w", event.EventID.String(), err)
	}
	defer r.finishTx(ctx, tx, event, &err)

	mut, err := r.walletRepo.WithTx(tx).CreditBonus(ctx, event.ActorID, event.Amount)
	if err != nil {
		return nil, err
	}

	globalPre, err := r.ledgerRepo.ActiveTipTotal(ctx)
	if err != nil {
		return nil, err
	}

	entry, err = ledger.NewBonusCreditEntry(event.ActorID, event.Amount,
		ledger.Snapshot{Pre: mut.Pre, Post: mut.Post},
		ledger.Snapshot{Pre: globalPre, Post: globalPre})
	if err != nil {
		return nil, err
	}
	entry.ActorName = mut.Username
	entry.CorrelationID = event.CorrelationID
	entry.Metadata = map[string]string{}
	if event.Reason != "" {
		entry.Metadata["reason"] = event.Reason
	}
	if event.AdminActor != "" {
		entry.Metadata["admin_actor"] = event.AdminActor
	}

	if err = r.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit DB transaction for event %s: %w", event.EventID.String(), err)
	}

	r.storeHash(ctx, entry, logger)
	logger.Info("Bonus credit recorded", "entry_id", entry.EntryID.String(), "amount", event.Amount)
	return entry, nil
}

func (r *LedgerRecorderImpl) eventLogger(event *shared.Event) *slog.Logger {
	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}
	return logger
}

// finishTx rolls the transaction back when the recording function is
// returning an error or panicking. Commit paths have already finished the
// transaction; the duplicate rollback is a no-op pgx tolerates.
func (r *LedgerRecorderImpl) finishTx(ctx context.Context, tx pgx.Tx, event *shared.Event, errp *error) {
	if p := recover(); p != nil {
		r.logger.Error("Panic recovered, rolling back transaction", "panic", p, "event_id", event.EventID.String())
		_ = tx.Rollback(ctx)
		panic(p) // Re-panic
	}
	if *errp != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", *errp, "event_id", event.EventID.String())
		}
	}
}

// storeHash records the integrity hash for a committed entry. Failures are
// logged, never propagated: the balance change is already durable and must
// not be retried for the sake of the detection layer.
func (r *LedgerRecorderImpl) storeHash(ctx context.Context, entry *ledger.Entry, logger *slog.Logger) {
	if err := r.verifier.StoreHash(ctx, entry); err != nil {
		logger.Error("Failed to store verification hash", "entry_id", entry.EntryID.String(), "error", err)
	}
}
