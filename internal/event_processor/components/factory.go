package components

import (
	"log/slog"

	"github.com/tuneable/tipledger/internal/config"
	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/content"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
	"github.com/tuneable/tipledger/internal/domain/wallet"
	"github.com/tuneable/tipledger/internal/event_processor/service"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	walletRepo wallet.Repository,
	contentRepo content.Repository,
	escrowRepo allocation.EscrowRepository,
	pendingRepo allocation.PendingRepository,
	settlementRepo shared.SettlementRepository,
	ledgerRepo ledger.Repository,
	failureRepo shared.FailureRepository,
	verifier service.Verifier,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	recorder := NewLedgerRecorder(
		pgDB.Pool(),
		walletRepo,
		contentRepo,
		escrowRepo,
		pendingRepo,
		settlementRepo,
		ledgerRepo,
		verifier,
		cfg.Revenue.CreatorSharePercent,
		logger,
	)
	allocator := NewRevenueAllocator(pgDB.Pool(), walletRepo, escrowRepo, pendingRepo, logger)
	failureRecorder := NewFailureRecorder(failureRepo, logger)

	baseService := service.NewProcessingService(
		recorder,
		allocator,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
