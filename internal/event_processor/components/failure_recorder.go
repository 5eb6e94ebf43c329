package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/event_processor/service"
)

type FailureRecorderImpl struct {
	failureRepo shared.FailureRepository
	logger      *slog.Logger
}

func NewFailureRecorder(failureRepo shared.FailureRepository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		failureRepo: failureRepo,
		logger:      logger,
	}
}

// RecordFailure persists a rejected event. Rejections never touch a balance
// and never produce a ledger entry; the failure collection is the only trace.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, event *shared.Event, failureReason string) error {
	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Recording rejected event", "event_id", event.EventID.String(), "reason", failureReason)

	existing, err := r.failureRepo.GetByEventID(ctx, event.EventID)
	if err != nil {
		logger.Error("Failed to check for existing failure record", "event_id", event.EventID.String(), "error", err)
	}
	if existing != nil {
		logger.Info("Event rejection already recorded", "event_id", event.EventID.String())
		return nil
	}

	failure := &shared.EventFailure{
		EventID:       event.EventID,
		EventType:     event.Type,
		ActorID:       event.ActorID,
		Amount:        event.Amount,
		Reason:        failureReason,
		CorrelationID: event.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := r.failureRepo.Create(ctx, failure); err != nil {
		logger.Error("Failed to create failure record", "event_id", event.EventID.String(), "error", err)
		return err
	}
	return nil
}
