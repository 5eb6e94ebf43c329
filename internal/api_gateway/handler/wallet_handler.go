package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/api_gateway/service"
	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Create registers a new wallet
func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
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

	w, err := h.walletService.CreateWallet(c.Request.Context(), userID, req.Username, req.InitialBalance)
	if err != nil {
		if errors.Is(err, wallet.ErrDuplicateWallet{UserID: userID}) {
			RespondConflict(c, "Wallet already exists for user")
			return
		}
		if errors.Is(err, wallet.ErrEmptyUsername) || errors.Is(err, wallet.ErrInvalidAmount) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create wallet", "user_id", req.UserID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapWalletToResponse(w))
}

// GetByID retrieves wallet balances by user ID, returns 404 if not found
func (h *WalletHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	w, err := h.walletService.GetWalletByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{UserID: userID}) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get wallet", "user_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToResponse(w))
}

// GetLedger retrieves paginated ledger history for a wallet
func (h *WalletHandler) GetLedger(c *gin.Context) {
	idParam := c.Param("id")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.walletService.GetLedgerByUserID(
		c.Request.Context(),
		userID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get ledger entries", "user_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	var responses []LedgerEntryResponse
	for _, entry := range entries {
		responses = append(responses, mapLedgerEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// GetEscrow retrieves the escrow balance and allocation history for a wallet
func (h *WalletHandler) GetEscrow(c *gin.Context) {
	idParam := c.Param("id")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	w, entries, err := h.walletService.GetEscrowHistory(
		c.Request.Context(),
		userID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{UserID: userID}) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get escrow history", "user_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := EscrowResponse{
		UserID:        w.UserID.String(),
		EscrowBalance: w.EscrowBalance,
		Entries:       make([]EscrowEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		response.Entries = append(response.Entries, mapEscrowEntryToResponse(entry))
	}

	RespondOK(c, response)
}

// mapWalletToResponse maps a wallet to a response DTO
func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		UserID:         w.UserID.String(),
		Username:       w.Username,
		Balance:        w.Balance,
		LifetimeTipped: w.LifetimeTipped,
		EscrowBalance:  w.EscrowBalance,
		BonusBalance:   w.BonusBalance,
		CreatedAt:      w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      w.UpdatedAt.Format(time.RFC3339),
	}
}

// mapLedgerEntryToResponse maps a ledger entry to a response DTO
func mapLedgerEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	response := LedgerEntryResponse{
		EntryID:         entry.EntryID.String(),
		ActorID:         entry.ActorID.String(),
		Type:            string(entry.Type),
		Amount:          entry.Amount,
		Balance:         SnapshotResponse{Pre: entry.Balance.Pre, Post: entry.Balance.Post},
		GlobalAggregate: SnapshotResponse{Pre: entry.GlobalAggregate.Pre, Post: entry.GlobalAggregate.Post},
		ReferenceID:     entry.ReferenceID,
		ReferenceType:   entry.ReferenceType,
		ActorName:       entry.ActorName,
		ContentTitle:    entry.ContentTitle,
		Metadata:        entry.Metadata,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339),
	}

	if entry.ContentID != nil {
		response.ContentID = entry.ContentID.String()
	}
	if entry.SessionID != nil {
		response.SessionID = entry.SessionID.String()
	}
	if entry.UserAggregate != nil {
		response.UserAggregate = &SnapshotResponse{Pre: entry.UserAggregate.Pre, Post: entry.UserAggregate.Post}
	}
	if entry.ContentAggregate != nil {
		response.ContentAggregate = &SnapshotResponse{Pre: entry.ContentAggregate.Pre, Post: entry.ContentAggregate.Post}
	}

	return response
}

// mapEscrowEntryToResponse maps an escrow entry to a response DTO
func mapEscrowEntryToResponse(entry *allocation.EscrowEntry) EscrowEntryResponse {
	response := EscrowEntryResponse{
		ID:              entry.ID,
		ContentID:       entry.ContentID.String(),
		TipEntryID:      entry.TipEntryID.String(),
		Amount:          entry.Amount,
		RemainingAmount: entry.RemainingAmount,
		Status:          string(entry.Status),
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ClaimedAt != nil {
		response.ClaimedAt = entry.ClaimedAt.Format(time.RFC3339)
	}
	return response
}
