package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/poll-service/internal/cache"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

type ResponsePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResponsePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResponseRepository {
	return &ResponsePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResponsePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ResponsePostgreSQL) Create(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error {
	db := r.getDB(tx)

	if err := db.WithContext(ctx).Create(response).Error; err != nil {
		return fmt.Errorf("failed to create response for poll %d: %w", response.PollID, err)
	}

	cache.InvalidateResponseCache(ctx, r.cacheManager, response.PollID, response.StudentRegNo)
	return nil
}

func (r *ResponsePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error) {
	var response models.PollResponse
	if err := r.getDB(tx).WithContext(ctx).First(&response, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get response %d: %w", id, err)
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error) {
	var response models.PollResponse
	if err := r.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&response, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock response %d: %w", id, err)
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) ExistsByPollAndStudent(ctx context.Context, tx *gorm.DB, pollID uint, regNo string) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.PollResponse{}).
		Where("poll_id = ? AND student_reg_no = ?", pollID, regNo).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check response: %w", err)
	}
	return count > 0, nil
}

// Update rewrites the answer fields and the response time
func (r *ResponsePostgreSQL) Update(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error {
	db := r.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.PollResponse{}).
		Where("id = ?", response.ID).
		Updates(map[string]interface{}{
			"response":     response.Response,
			"option_index": response.OptionIndex,
			"responded_at": response.RespondedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update response %d: %w", response.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("response %d: %w", response.ID, gorm.ErrRecordNotFound)
	}

	cache.InvalidateResponseCache(ctx, r.cacheManager, response.PollID, response.StudentRegNo)
	return nil
}

func (r *ResponsePostgreSQL) ListByPoll(ctx context.Context, tx *gorm.DB, pollID uint) ([]*models.PollResponse, error) {
	load := func() ([]*models.PollResponse, error) {
		var responses []*models.PollResponse
		if err := r.getDB(tx).WithContext(ctx).
			Where("poll_id = ?", pollID).
			Order("responded_at ASC, id ASC").
			Find(&responses).Error; err != nil {
			return nil, fmt.Errorf("failed to list responses for poll %d: %w", pollID, err)
		}
		return responses, nil
	}

	if tx != nil {
		return load()
	}
	return cache.Fetch(ctx, r.cacheManager.Response, cache.ResponsesByPollKey(pollID), cache.ResponseCacheConfig.TTL, load)
}

func (r *ResponsePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ResponseFilters) ([]*models.PollResponse, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.PollResponse{})

	if len(filters.PollIDs) > 0 {
		query = query.Where("poll_id IN ?", filters.PollIDs)
	}
	if filters.RegNo != "" {
		query = query.Where("student_reg_no = ?", filters.RegNo)
	}

	var responses []*models.PollResponse
	query = query.Order("responded_at DESC, id DESC")
	if filters.Limit > 0 {
		query = applyPagination(query, filters.Limit, filters.Offset)
	}
	if err := query.Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, regNo string) ([]*models.PollResponse, error) {
	load := func() ([]*models.PollResponse, error) {
		var responses []*models.PollResponse
		if err := r.getDB(tx).WithContext(ctx).
			Where("student_reg_no = ?", regNo).
			Order("responded_at DESC, id DESC").
			Find(&responses).Error; err != nil {
			return nil, fmt.Errorf("failed to list responses for %s: %w", regNo, err)
		}
		return responses, nil
	}

	if tx != nil {
		return load()
	}
	return cache.Fetch(ctx, r.cacheManager.Response, cache.ResponsesByStudentKey(regNo), cache.ResponseCacheConfig.TTL, load)
}
