package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/handlers"
	"github.com/SAP-F-2025/poll-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/poll-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
	"github.com/SAP-F-2025/poll-service/internal/validator"
	"github.com/SAP-F-2025/poll-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := postgres.Migrate(migrateCtx, db, cfg.ChangeFeed.Channel); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	cancelMigrate()

	// Initialize repositories
	repoConfig := postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	}
	repoManager := postgres.NewRepositoryManager(repoConfig)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Domain events go to Kafka when brokers are configured
	var publisher events.EventPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		logger.Info("Kafka not configured, domain events are only logged")
		publisher = events.NewMockEventPublisher(slogLogger)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(db, repo, slogLogger, validator.New(), services.ServiceManagerConfig{
		Timezone:       cfg.Timezone,
		Aggregation:    cfg.Aggregation,
		Refresh:        cfg.Refresh,
		Publisher:      publisher,
		DefaultTimeout: 30 * time.Second,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Change notifications invalidate the cache and refresh live summaries
	feedCtx, stopFeed := context.WithCancel(context.Background())
	feed := events.NewChangeFeed(cfg.DatabaseURL, cfg.ChangeFeed.Channel,
		cfg.ChangeFeed.MinReconnectInterval, cfg.ChangeFeed.MaxReconnectInterval, slogLogger)
	// cache invalidation runs before the change is fanned out, so refreshes read fresh rows
	feed.OnChange(events.CacheInvalidationHandler(repoManager.CacheManager()))
	changes, err := feed.Subscribe(feedCtx)
	if err != nil {
		log.Fatalf("Failed to subscribe to change feed: %v", err)
	}
	go serviceManager.Refresh().Consume(feedCtx, changes)
	go func() {
		if err := feed.Run(feedCtx); err != nil {
			logger.Error("Change feed stopped", "error", err)
		}
	}()

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, cfg.Casdoor, repo.Identity())

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Live streams end first so the server is not held open by SSE clients
	serviceManager.Refresh().Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stopFeed()
	if err := feed.Close(); err != nil {
		logger.Warn("Failed to close change feed", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
