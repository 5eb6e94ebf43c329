package service

import (
	"context"
	"log/slog"

	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/platform/messaging/producers"
)

// EventServiceImpl implements the EventService interface
type EventServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewEventService creates a new event service
func NewEventService(logger *slog.Logger, producer producers.MessagePublisher) EventService {
	return &EventServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// PublishEvent validates the envelope and publishes it keyed by actor ID, so
// all events for one wallet land on the same partition and apply in order.
func (s *EventServiceImpl) PublishEvent(ctx context.Context, event *shared.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	key := event.ActorID.String()
	if err := s.producer.Publish(ctx, key, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_id", event.EventID,
			"type", string(event.Type),
			"actor_id", event.ActorID,
			"error", err,
		)
		return err
	}

	s.logger.Info("Event published",
		"event_id", event.EventID,
		"type", string(event.Type),
		"actor_id", event.ActorID,
		"amount", event.Amount,
	)

	return nil
}
