package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tuneable/tipledger/internal/api_gateway/handler"
	"github.com/tuneable/tipledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	eventHandler *handler.EventHandler,
	adminHandler *handler.AdminHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet operations
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", walletHandler.Create)
			wallets.GET("/:id", walletHandler.GetByID)
			wallets.GET("/:id/ledger", walletHandler.GetLedger)
			wallets.GET("/:id/escrow", walletHandler.GetEscrow)
		}

		// Event producing operations
		v1.POST("/tips", eventHandler.PlaceTip)
		v1.POST("/refunds", eventHandler.IssueRefund)
		v1.POST("/settlements", eventHandler.RecordSettlement)
		v1.POST("/payouts", eventHandler.RequestPayout)
		v1.POST("/identity-verifications", eventHandler.VerifyIdentity)

		// Operator surface
		admin := v1.Group("/admin")
		{
			admin.POST("/bonus-credits", eventHandler.GrantBonusCredit)
			admin.GET("/verification/stats", adminHandler.GetVerificationStats)
			admin.GET("/verification/anomalies", adminHandler.GetAnomalies)
			admin.POST("/verification/entries/:id/verify", adminHandler.VerifyEntry)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
