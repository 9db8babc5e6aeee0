package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// PollRepository interface for poll catalog operations
type PollRepository interface {
	Create(ctx context.Context, tx *gorm.DB, poll *models.Poll) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Poll, error)
	// List returns polls newest first with the total before pagination
	List(ctx context.Context, tx *gorm.DB, filters PollFilters) ([]*models.Poll, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

// ResponseRepository interface for response ledger operations
type ResponseRepository interface {
	// Create fails with gorm.ErrDuplicatedKey when the (poll, student) pair already answered
	Create(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error)
	// GetByIDForUpdate locks the row until tx ends
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error)
	ExistsByPollAndStudent(ctx context.Context, tx *gorm.DB, pollID uint, regNo string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error

	ListByPoll(ctx context.Context, tx *gorm.DB, pollID uint) ([]*models.PollResponse, error)
	List(ctx context.Context, tx *gorm.DB, filters ResponseFilters) ([]*models.PollResponse, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, regNo string) ([]*models.PollResponse, error)
}

// IsNotFoundError reports whether err means the row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
