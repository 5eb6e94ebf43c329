package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/api_gateway/service"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/verification"
)

// AdminHandler handles HTTP requests for the operator verification surface
type AdminHandler struct {
	verificationService service.VerificationService
	logger              *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, verificationService service.VerificationService) *AdminHandler {
	return &AdminHandler{
		verificationService: verificationService,
		logger:              logger,
	}
}

// GetVerificationStats reports verification record counts by status
func (h *AdminHandler) GetVerificationStats(c *gin.Context) {
	stats, err := h.verificationService.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get verification stats", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, stats)
}

// GetAnomalies lists ledger entries currently flagged as mismatched
func (h *AdminHandler) GetAnomalies(c *gin.Context) {
	limit := 50
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			RespondBadRequest(c, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	records, err := h.verificationService.Anomalies(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list verification anomalies", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]VerificationRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, mapVerificationRecordToResponse(record))
	}

	RespondOK(c, responses)
}

// VerifyEntry re-verifies a single ledger entry on demand
func (h *AdminHandler) VerifyEntry(c *gin.Context) {
	idParam := c.Param("id")
	entryID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid entry ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	record, err := h.verificationService.VerifyEntry(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, verification.ErrRecordNotFound{EntryID: entryID}) {
			RespondNotFound(c, "No verification record for entry")
			return
		}
		if errors.Is(err, ledger.ErrEntryNotFound{EntryID: entryID}) {
			RespondNotFound(c, "Ledger entry not found")
			return
		}
		h.logger.Error("Failed to verify entry", "entry_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapVerificationRecordToResponse(record))
}

// mapVerificationRecordToResponse maps a verification record to a response DTO
func mapVerificationRecordToResponse(record *verification.Record) VerificationRecordResponse {
	response := VerificationRecordResponse{
		RecordID:          record.RecordID.String(),
		EntryID:           record.EntryID.String(),
		OriginalHash:      record.OriginalHash,
		LastObservedHash:  record.LastObservedHash,
		Status:            string(record.Status),
		VerificationCount: record.VerificationCount,
		MismatchCount:     record.MismatchCount,
	}
	if record.LastVerifiedAt != nil {
		response.LastVerifiedAt = record.LastVerifiedAt.Format(time.RFC3339)
	}
	return response
}
