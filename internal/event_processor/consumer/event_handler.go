package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/event_processor/service"
	"github.com/tuneable/tipledger/internal/platform/messaging/producers"
)

// EventHandler handles incoming domain event messages from Kafka
type EventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewEventHandler creates a new handler
func NewEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *EventHandler {
	return &EventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *EventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.Event
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received event for processing",
		"event_id", event.EventID.String(),
		"actor_id", event.ActorID.String(),
		"type", string(event.Type),
		"amount", event.Amount,
	)

	if err := h.processingService.ProcessEvent(ctx, &event); err != nil {
		logger.Error("Failed to process event",
			"event_id", event.EventID.String(),
			"actor_id", event.ActorID.String(),
			"error", err,
		)
		return fmt.Errorf("processing event %s failed: %w", event.EventID.String(), err)
	}

	logger.Info("Successfully processed event", "event_id", event.EventID.String())
	return nil // Success, commit offset
}
