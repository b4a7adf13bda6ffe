package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/internal/service"
	"github.com/campushq/event-service/internal/worker"
	"github.com/campushq/event-service/pkg/config"
	"github.com/campushq/event-service/pkg/database"
	"github.com/campushq/event-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "reconcile-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Reconcile Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      int32(cfg.Database.MaxOpenConns),
		MinConns:      int32(cfg.Database.MinIdleConns),
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// The standalone worker only repairs counters, no notifications needed
	eventRepo := repository.NewPostgresEventRepository(db.Pool())
	eventService := service.NewEventService(eventRepo, service.NewNoOpNotifier())

	workerCfg := &worker.ReconcileWorkerConfig{
		ScanInterval: cfg.Reconcile.Interval,
		BatchSize:    cfg.Reconcile.BatchSize,
	}
	reconcileWorker := worker.NewReconcileWorker(eventRepo, eventService, workerCfg)

	if err := reconcileWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start reconcile worker: %v", err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down reconcile worker...")
	cancel()
	reconcileWorker.Stop()

	scanned, adjusted, _ := reconcileWorker.Stats()
	appLog.Info(fmt.Sprintf("Reconcile worker stopped (scanned=%d, adjusted=%d)", scanned, adjusted))
}
