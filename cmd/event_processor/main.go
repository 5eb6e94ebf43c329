package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tuneable/tipledger/internal/config"
	"github.com/tuneable/tipledger/internal/data/mongo"
	"github.com/tuneable/tipledger/internal/data/postgres"
	"github.com/tuneable/tipledger/internal/domain/verification"
	"github.com/tuneable/tipledger/internal/event_processor/components"
	"github.com/tuneable/tipledger/internal/event_processor/consumer"
	"github.com/tuneable/tipledger/internal/event_processor/reconciler"
	"github.com/tuneable/tipledger/internal/event_processor/service"
	"github.com/tuneable/tipledger/internal/logger"
	"github.com/tuneable/tipledger/internal/platform/messaging/consumers"
	"github.com/tuneable/tipledger/internal/platform/messaging/producers"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

func main() {
	// Root context cancelled on shutdown
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Configuration
	cfg, err := config.LoadConfig("event_processor")
	if err != nil {
		// no logger yet
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logging
	log := logger.NewLogger(cfg)

	log.Info("Starting Event Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Databases
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	contentRepo := postgres.NewContentRepository(log, postgresDB)
	escrowRepo := postgres.NewEscrowRepository(log, postgresDB)
	pendingRepo := postgres.NewPendingAllocationRepository(log, postgresDB)
	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	if err := ledgerRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create ledger indexes", "error", err)
		os.Exit(1)
	}
	verificationRepo := mongo.NewVerificationRepository(log, mongoDB.Database())
	failureRepo := mongo.NewFailureRepository(log, mongoDB.Database())

	// Hash verification service, shared by the recorder and the sweeper
	verifier := verification.NewService(verificationRepo, ledgerRepo, log)

	// Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Event processing pipeline
	processingService := components.CreateProcessingService(
		postgresDB,
		walletRepo,
		contentRepo,
		escrowRepo,
		pendingRepo,
		settlementRepo,
		ledgerRepo,
		failureRepo,
		verifier,
		log,
		cfg,
	)

	// Handler bridging the consumer to the pipeline
	eventHandler := consumer.NewEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Periodic hash verification sweep
	sweeper := reconciler.NewSweeper(
		&cfg.Reconciler,
		verifier,
		log,
	)

	errChan := make(chan error, 2)

	var wg sync.WaitGroup

	// Consume until the context is cancelled
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.EventTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.EventTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Sweep on its own schedule
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting verification sweeper",
			"interval", cfg.Reconciler.SweepInterval.String(),
			"batch_size", cfg.Reconciler.BatchSize,
		)
		sweeper.Start(appCtx)
	}()

	// Shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Block until a signal arrives or a component fails
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Stop all context-bound work
	cancelAppCtx()

	// Drain the worker pool before closing its downstreams
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Bounded shutdown window
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Wait for the consumer and sweeper loops
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Postgres pool
	postgresDB.Close()

	// Mongo client
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Event Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Event Processor shutdown completed with errors")
	} else {
		log.Info("Event Processor shutdown completed successfully")
	}
}
