package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuneable/tipledger/internal/api_gateway"
	"github.com/tuneable/tipledger/internal/api_gateway/service"
	"github.com/tuneable/tipledger/internal/config"
	"github.com/tuneable/tipledger/internal/data/mongo"
	"github.com/tuneable/tipledger/internal/data/postgres"
	"github.com/tuneable/tipledger/internal/domain/verification"
	"github.com/tuneable/tipledger/internal/logger"
	"github.com/tuneable/tipledger/internal/platform/messaging/producers"
	"github.com/tuneable/tipledger/internal/platform/persistence"
)

func main() {
	// Root context cancelled on shutdown
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// no logger yet
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logging
	log := logger.NewLogger(cfg)

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

	// Kafka producer for the event topic
	kafkaProducer, err := producers.NewLedgerEventMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize API Gateway Kafka producer", "error", err)
		os.Exit(1)
	}

	// Repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	escrowRepo := postgres.NewEscrowRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	verificationRepo := mongo.NewVerificationRepository(log, mongoDB.Database())

	// Services
	walletService := service.NewWalletService(walletRepo, ledgerRepo, escrowRepo)
	eventService := service.NewEventService(log, kafkaProducer)
	verificationService := verification.NewService(verificationRepo, ledgerRepo, log)

	// HTTP server
	server := api_gateway.NewServer(log, cfg, walletService, eventService, verificationService)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	// Serve without blocking signal handling
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Block until a signal arrives or a component fails
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Stop all context-bound work
	cancelAppCtx()

	// Bounded shutdown window
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Postgres pool
	postgresDB.Close()

	// HTTP server drain
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
