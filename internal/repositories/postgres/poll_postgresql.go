package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/cache"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

type PollPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewPollPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.PollRepository {
	return &PollPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (p *PollPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

type pollPage struct {
	Polls []*models.Poll `json:"polls"`
	Total int64          `json:"total"`
}

func (p *PollPostgreSQL) Create(ctx context.Context, tx *gorm.DB, poll *models.Poll) error {
	db := p.getDB(tx)

	if err := db.WithContext(ctx).Create(poll).Error; err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, p.cacheManager.Poll, cache.PollListPattern())
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Stats, "*")
	return nil
}

func (p *PollPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Poll, error) {
	load := func() (*models.Poll, error) {
		var poll models.Poll
		if err := p.getDB(tx).WithContext(ctx).
			Preload("Class").
			Preload("Staff").
			First(&poll, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get poll %d: %w", id, err)
		}
		return &poll, nil
	}

	if tx != nil {
		return load()
	}
	return cache.Fetch(ctx, p.cacheManager.Poll, cache.PollKey(id), cache.PollCacheConfig.TTL, load)
}

func (p *PollPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.PollFilters) ([]*models.Poll, int64, error) {
	load := func() (pollPage, error) {
		db := p.getDB(tx).WithContext(ctx)
		var page pollPage

		if err := applyPollFilters(db.Model(&models.Poll{}), filters).
			Count(&page.Total).Error; err != nil {
			return page, fmt.Errorf("failed to count polls: %w", err)
		}

		query := applyPollFilters(db.Model(&models.Poll{}), filters).
			Preload("Class").
			Preload("Staff").
			Order("created_at DESC, id DESC")
		if err := applyPagination(query, filters.Limit, filters.Offset).
			Find(&page.Polls).Error; err != nil {
			return page, fmt.Errorf("failed to list polls: %w", err)
		}

		return page, nil
	}

	key, cacheable := pollListCacheKey(filters)
	if tx != nil || !cacheable {
		page, err := load()
		return page.Polls, page.Total, err
	}

	page, err := cache.Fetch(ctx, p.cacheManager.Poll, key, cache.PollCacheConfig.TTL, load)
	if err != nil {
		return nil, 0, err
	}
	return page.Polls, page.Total, nil
}

// Delete removes the poll; its responses go with it through the cascade
func (p *PollPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := p.getDB(tx)

	result := db.WithContext(ctx).Delete(&models.Poll{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete poll %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("poll %d: %w", id, gorm.ErrRecordNotFound)
	}

	cache.InvalidatePollCache(ctx, p.cacheManager, id)
	return nil
}
