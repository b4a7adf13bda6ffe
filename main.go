package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/campushq/event-service/internal/di"
	"github.com/campushq/event-service/internal/metrics"
	"github.com/campushq/event-service/internal/service"
	"github.com/campushq/event-service/internal/worker"
	"github.com/campushq/event-service/pkg/config"
	"github.com/campushq/event-service/pkg/database"
	"github.com/campushq/event-service/pkg/logger"
	"github.com/campushq/event-service/pkg/middleware"
	"github.com/campushq/event-service/pkg/redis"
	"github.com/campushq/event-service/pkg/telemetry"
)

const serviceName = "event-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Event Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	if err := telemetry.InitMetrics(serviceName); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize metrics provider: %v", err))
	}
	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MinIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis (idempotency cache; registration flow works without it)
	var redisClient *redis.Client
	redisCfg := &redis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
	redisClient, err = redis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis connection failed (idempotency disabled): %v", err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info(fmt.Sprintf("Redis connected (%s)", redisCfg.Addr()))
	}

	// Initialize Kafka notifier; lifecycle notifications are best effort
	var notifier service.Notifier
	kafkaNotifier, err := service.NewKafkaNotifier(ctx, &service.NotifierConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ServiceName: serviceName,
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed (notifications disabled): %v", err))
		notifier = service.NewNoOpNotifier()
	} else {
		notifier = kafkaNotifier
		appLog.Info(fmt.Sprintf("Kafka connected (topic: %s)", cfg.Kafka.Topic))
	}

	// Build dependency injection container
	container, err := di.NewContainer(&di.ContainerConfig{
		DB:               db,
		Redis:            redisClient,
		Notifier:         notifier,
		TicketSecret:     cfg.TicketSecret(),
		TicketIssuerName: serviceName,
		MaxIssueAttempts: cfg.Ticket.MaxIssueAttempts,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to build container: %v", err))
	}
	defer container.Close()

	// Start the counter reconciliation worker
	if cfg.Reconcile.Enabled {
		reconcileWorker := worker.NewReconcileWorker(
			container.EventRepo,
			container.EventService,
			&worker.ReconcileWorkerConfig{
				ScanInterval: cfg.Reconcile.Interval,
				BatchSize:    cfg.Reconcile.BatchSize,
			},
		)
		if err := reconcileWorker.Start(ctx); err != nil {
			appLog.Warn(fmt.Sprintf("Failed to start reconcile worker: %v", err))
		} else {
			defer reconcileWorker.Stop()
		}
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	authCfg := &middleware.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}
	authRequired := middleware.AuthMiddleware(authCfg)

	var idempotent gin.HandlerFunc
	if redisClient != nil {
		idempotent = middleware.IdempotencyMiddleware(redisClient.Client(), middleware.DefaultIdempotencyConfig())
	} else {
		idempotent = func(c *gin.Context) { c.Next() }
	}

	// API routes
	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			// Public read endpoints
			events.GET("", container.EventHandler.ListEvents)
			events.GET("/slug/:slug", container.EventHandler.GetEventBySlug)
			events.GET("/:id", container.EventHandler.GetEvent)

			// Organizer endpoints
			organizer := events.Group("")
			organizer.Use(authRequired)
			organizer.Use(middleware.RequireRole(middleware.RoleOrganizer))
			{
				organizer.POST("", container.EventHandler.CreateEvent)
				organizer.PUT("/:id", container.EventHandler.UpdateEvent)
				organizer.DELETE("/:id", container.EventHandler.DeleteEvent)
				organizer.POST("/:id/submit", container.EventHandler.SubmitEvent)
				organizer.POST("/:id/cancel", container.EventHandler.CancelEvent)
				organizer.POST("/:id/complete", container.EventHandler.CompleteEvent)
			}

			// Admin endpoints
			admin := events.Group("")
			admin.Use(authRequired)
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.POST("/:id/review", container.EventHandler.ReviewEvent)
				admin.POST("/:id/reconcile", container.EventHandler.ReconcileEvent)
			}

			// Registration endpoints
			registrations := events.Group("")
			registrations.Use(authRequired)
			{
				registrations.POST("/:id/registrations", idempotent, container.RegistrationHandler.Register)
				registrations.DELETE("/:id/registrations", container.RegistrationHandler.CancelRegistration)
				registrations.GET("/:id/registrations/me", container.RegistrationHandler.GetMyRegistration)
			}

			// Staff endpoints
			staff := events.Group("")
			staff.Use(authRequired)
			staff.Use(middleware.RequireRole(middleware.RoleStaff, middleware.RoleOrganizer))
			{
				staff.POST("/:id/checkin", container.RegistrationHandler.CheckIn)
				staff.GET("/:id/registrations", container.RegistrationHandler.ListEventRegistrations)
			}
		}

		me := v1.Group("/registrations")
		me.Use(authRequired)
		{
			me.GET("", container.RegistrationHandler.ListMyRegistrations)
		}
	}

	// Create HTTP server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Event Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
