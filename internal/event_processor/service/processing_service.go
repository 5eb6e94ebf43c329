package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/content"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/domain/wallet"
)

type ProcessingServiceImpl struct {
	recorder        LedgerRecorder
	allocator       RevenueAllocator
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	recorder LedgerRecorder,
	allocator RevenueAllocator,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		recorder:        recorder,
		allocator:       allocator,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessEvent validates and applies a single inbound event. Business
// rejections are recorded and acknowledged; infrastructure errors propagate
// so Kafka redelivers the message.
func (s *ProcessingServiceImpl) ProcessEvent(ctx context.Context, event *shared.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing event", "event_id", event.EventID.String(), "type", string(event.Type), "actor_id", event.ActorID.String())

	// 1. Validate the envelope
	if err := event.Validate(); err != nil {
		logger.Error("Event validation failed", "event_id", event.EventID.String(), "error", err)

		var failureReason string
		if errors.Is(err, shared.ErrInvalidEventType) {
			failureReason = string(shared.FailureReasonUnknownEventType)
		} else {
			failureReason = string(shared.FailureReasonInvalidAmount)
		}

		if recordErr := s.failureRecorder.RecordFailure(ctx, event, failureReason); recordErr != nil {
			logger.Error("Failed to record event failure", "event_id", event.EventID.String(), "error", recordErr)
		}

		return nil // Return nil to Kafka consumer to acknowledge the message
	}

	// 2. Dispatch by event type
	var err error
	switch event.Type {
	case shared.EventTypeTipPlaced:
		_, err = s.recorder.RecordTip(ctx, event)
	case shared.EventTypeRefundIssued:
		_, err = s.recorder.RecordRefund(ctx, event)
	case shared.EventTypeExternalSettlement:
		_, err = s.recorder.RecordTopUp(ctx, event)
	case shared.EventTypePayoutApproved:
		_, err = s.recorder.RecordPayout(ctx, event)
	case shared.EventTypeBonusCredit:
		_, err = s.recorder.RecordBonusCredit(ctx, event)
	case shared.EventTypeIdentityVerified:
		_, err = s.allocator.MatchPending(ctx, event)
	}
	if err == nil {
		logger.Info("Event processed", "event_id", event.EventID.String(), "type", string(event.Type))
		return nil
	}

	// 3. Business rejections are final: record and acknowledge
	if reason, rejected := classifyRejection(err); rejected {
		logger.Warn("Event rejected", "event_id", event.EventID.String(), "type", string(event.Type), "reason", reason, "error", err)
		if recordErr := s.failureRecorder.RecordFailure(ctx, event, reason); recordErr != nil {
			logger.Error("Failed to record event failure", "event_id", event.EventID.String(), "error", recordErr)
		}
		return nil
	}

	// 4. Everything else is infrastructure: let Kafka retry
	logger.Error("Event processing failed", "event_id", event.EventID.String(), "type", string(event.Type), "error", err)
	return err
}

// classifyRejection maps domain errors to failure reasons. Anything it does
// not recognize is treated as retryable.
func classifyRejection(err error) (string, bool) {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		return string(shared.FailureReasonWalletNotFound), true
	case errors.Is(err, content.ErrContentNotFound{}):
		return string(shared.FailureReasonContentNotFound), true
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return string(shared.FailureReasonInsufficientFunds), true
	case errors.Is(err, wallet.ErrInsufficientEscrow):
		return string(shared.FailureReasonInsufficientEscrow), true
	case errors.Is(err, shared.ErrDuplicateSettlement):
		return string(shared.FailureReasonDuplicateSettlement), true
	case errors.Is(err, allocation.ErrUnresolvedPayee):
		return string(shared.FailureReasonUnresolvedPayee), true
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, allocation.ErrInvalidAmount):
		return string(shared.FailureReasonInvalidAmount), true
	}
	return "", false
}
