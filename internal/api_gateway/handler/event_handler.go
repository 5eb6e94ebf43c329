package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/api_gateway/middleware"
	"github.com/tuneable/tipledger/internal/api_gateway/service"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

// EventHandler handles HTTP requests that enqueue balance-affecting events
type EventHandler struct {
	eventService service.EventService
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(logger *slog.Logger, eventService service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// PlaceTip enqueues a TIP_PLACED event
func (h *EventHandler) PlaceTip(c *gin.Context) {
	var req PlaceTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		RespondBadRequest(c, "Invalid content ID")
		return
	}

	event := h.newEvent(c, shared.EventTypeTipPlaced, userID)
	event.ContentID = &contentID
	event.Amount = req.Amount
	if req.SessionID != "" {
		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			RespondBadRequest(c, "Invalid session ID")
			return
		}
		event.SessionID = &sessionID
	}

	h.publish(c, event)
}

// IssueRefund enqueues a REFUND_ISSUED event
func (h *EventHandler) IssueRefund(c *gin.Context) {
	var req IssueRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		RespondBadRequest(c, "Invalid content ID")
		return
	}

	event := h.newEvent(c, shared.EventTypeRefundIssued, userID)
	event.ContentID = &contentID
	event.Amount = req.Amount
	event.ReferenceID = req.ReferenceID

	h.publish(c, event)
}

// RecordSettlement enqueues an EXTERNAL_SETTLEMENT event
func (h *EventHandler) RecordSettlement(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	event := h.newEvent(c, shared.EventTypeExternalSettlement, userID)
	event.Amount = req.Amount
	event.ProviderReference = req.ProviderReference

	h.publish(c, event)
}

// RequestPayout enqueues a PAYOUT_APPROVED event
func (h *EventHandler) RequestPayout(c *gin.Context) {
	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	event := h.newEvent(c, shared.EventTypePayoutApproved, userID)
	event.Amount = req.Amount
	event.ReferenceID = req.ReferenceID

	h.publish(c, event)
}

// VerifyIdentity enqueues an IDENTITY_VERIFIED event
func (h *EventHandler) VerifyIdentity(c *gin.Context) {
	var req IdentityVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	event := h.newEvent(c, shared.EventTypeIdentityVerified, userID)
	event.IdentityKey = req.IdentityKey

	h.publish(c, event)
}

// GrantBonusCredit enqueues a BONUS_CREDIT event
func (h *EventHandler) GrantBonusCredit(c *gin.Context) {
	var req BonusCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	event := h.newEvent(c, shared.EventTypeBonusCredit, userID)
	event.Amount = req.Amount
	event.Reason = req.Reason
	event.AdminActor = req.AdminActor

	h.publish(c, event)
}

func (h *EventHandler) newEvent(c *gin.Context, eventType shared.EventType, actorID uuid.UUID) *shared.Event {
	return &shared.Event{
		EventID:       uuid.New(),
		Type:          eventType,
		ActorID:       actorID,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now().UTC(),
	}
}

func (h *EventHandler) publish(c *gin.Context, event *shared.Event) {
	if err := h.eventService.PublishEvent(c.Request.Context(), event); err != nil {
		h.logger.Error("Failed to publish event", "type", string(event.Type), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"event_id": event.EventID.String(),
		"status":   "ACCEPTED",
	})
}
