package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tuneable/tipledger/internal/config"
	"github.com/tuneable/tipledger/internal/domain/verification"
)

// Sweeper periodically re-verifies every ledger entry's integrity hash.
// Mismatches are flagged on the verification records and logged; the sweep
// never mutates an entry.
type Sweeper struct {
	verifier      *verification.Service
	logger        *slog.Logger
	sweepInterval time.Duration
	batchSize     int
}

func NewSweeper(
	cfg *config.ReconcilerConfig,
	verifier *verification.Service,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		verifier:      verifier,
		logger:        logger,
		sweepInterval: cfg.SweepInterval,
		batchSize:     cfg.BatchSize,
	}
}

// Start begins sweeping until context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting verification sweeper",
		"sweep_interval", s.sweepInterval.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Verification sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.logger.Debug("Verification sweeper tick: checking ledger entries")
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	result, err := s.verifier.VerifyAll(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Verification sweep failed", "error", err)
		return
	}

	logger := s.logger
	if result.Mismatched > 0 {
		logger.Error("Verification sweep found mismatched entries",
			"checked", result.Checked,
			"mismatched", result.Mismatched,
			"unguarded", result.Unguarded,
			"duration", time.Since(start).String(),
		)
		return
	}
	logger.Info("Verification sweep completed",
		"checked", result.Checked,
		"verified", result.Verified,
		"unguarded", result.Unguarded,
		"duration", time.Since(start).String(),
	)
}
