package service

import (
	"context"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

// ProcessingService defines the interface for processing inbound events.
type ProcessingService interface {
	ProcessEvent(ctx context.Context, event *shared.Event) error
}

// LedgerRecorder applies a balance-affecting event atomically and appends
// the resulting ledger entry. Each method owns its own database transaction:
// the balance mutation, the aggregate updates and the entry append commit
// together or not at all.
type LedgerRecorder interface {
	RecordTip(ctx context.Context, event *shared.Event) (*ledger.Entry, error)
	RecordRefund(ctx context.Context, event *shared.Event) (*ledger.Entry, error)
	RecordTopUp(ctx context.Context, event *shared.Event) (*ledger.Entry, error)
	RecordPayout(ctx context.Context, event *shared.Event) (*ledger.Entry, error)
	RecordBonusCredit(ctx context.Context, event *shared.Event) (*ledger.Entry, error)
}

// RevenueAllocator resolves identity verification events against pending
// allocations. Tip-time allocation runs inside the recorder's transaction;
// this interface covers the claim path, which has no ledger entry of its own.
type RevenueAllocator interface {
	MatchPending(ctx context.Context, event *shared.Event) ([]*allocation.PendingAllocation, error)
}

// Verifier stores the integrity hash for a freshly appended ledger entry.
// Hash storage is detection infrastructure, never part of the balance
// transaction; callers log its errors instead of failing the event.
type Verifier interface {
	StoreHash(ctx context.Context, entry *ledger.Entry) error
}

// FailureRecorder persists rejected events for the operator audit trail
type FailureRecorder interface {
	RecordFailure(ctx context.Context, event *shared.Event, failureReason string) error
}
