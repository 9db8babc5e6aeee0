package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Timezone resolves time-of-day deadlines and export filenames
	Timezone *time.Location

	Aggregation config.AggregationConfig
	Refresh     config.RefreshConfig

	// Publisher receives domain events; nil disables publishing
	Publisher events.EventPublisher

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	actorService    ActorService
	pollService     PollService
	responseService ResponseService
	summaryService  SummaryService
	exportService   ExportService
	refreshHub      *RefreshHub

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	cfg := ServiceManagerConfig{
		Timezone:    time.UTC,
		Aggregation: config.DefaultAggregationConfig(),
		Refresh: config.RefreshConfig{
			HODDebounce:     time.Second,
			DefaultDebounce: 0,
		},
		Publisher:      events.NewMockEventPublisher(logger),
		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, cfg)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initializeServices()

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	aggregator := NewAggregator(sm.config.Aggregation)

	sm.actorService = NewActorService(sm.repo, sm.logger)
	sm.logger.Info("Actor service initialized")

	sm.pollService = NewPollService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher, sm.config.Timezone)
	sm.logger.Info("Poll service initialized")

	sm.responseService = NewResponseService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher)
	sm.logger.Info("Response service initialized")

	sm.summaryService = NewSummaryService(sm.repo, sm.logger, aggregator, sm.config.Timezone)
	sm.logger.Info("Summary service initialized")

	sm.exportService = NewExportService(sm.repo, sm.logger, aggregator, sm.config.Publisher, sm.config.Timezone)
	sm.logger.Info("Export service initialized")

	sm.refreshHub = NewRefreshHub(sm.summaryService, sm.config.Refresh, sm.logger)
	sm.logger.Info("Refresh hub initialized")
}

// Service getters
func (sm *serviceManager) Actor() ActorService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.actorService
}

func (sm *serviceManager) Poll() PollService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.pollService
}

func (sm *serviceManager) Response() ResponseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.responseService
}

func (sm *serviceManager) Summary() SummaryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.summaryService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

func (sm *serviceManager) Refresh() *RefreshHub {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.refreshHub
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.DefaultTimeout)
		defer cancel()
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.refreshHub != nil {
		sm.refreshHub.Stop()
	}

	if sm.config.Publisher != nil {
		if err := sm.config.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.Timezone == nil {
		config.Timezone = time.UTC
	}

	if config.DefaultTimeout < 0 {
		errors = append(errors, "default timeout cannot be negative")
	}

	if config.Refresh.HODDebounce < 0 || config.Refresh.DefaultDebounce < 0 {
		errors = append(errors, "refresh debounce cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
