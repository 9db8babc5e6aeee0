package repositories

import "context"

// Repository aggregates all repository interfaces
type Repository interface {
	// Directory domain (read-only, provisioned externally)
	Directory() DirectoryRepository

	// Poll domain
	Poll() PollRepository
	Response() ResponseRepository

	// Dashboard counters
	Dashboard() DashboardRepository

	// Identity provider lookups
	Identity() IdentityRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
