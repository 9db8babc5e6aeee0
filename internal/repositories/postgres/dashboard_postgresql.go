package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/cache"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

type dashboardRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, redisClient *redis.Client) repositories.DashboardRepository {
	return &dashboardRepository{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// cached reads through the stats cache outside transactions
func cached[T any](ctx context.Context, r *dashboardRepository, tx *gorm.DB, key string, fetch func() (T, error)) (T, error) {
	if tx != nil {
		return fetch()
	}
	return cache.Fetch(ctx, r.cacheManager.Stats, key, cache.StatsCacheConfig.TTL, fetch)
}

// ===== DASHBOARD STATS =====
// An empty class scope counts nothing.

func (r *dashboardRepository) CountStudents(ctx context.Context, tx *gorm.DB, department string) (int64, error) {
	return cached(ctx, r, tx, "students:"+strings.ToLower(department), func() (int64, error) {
		return r.countStudents(ctx, tx, department)
	})
}

func (r *dashboardRepository) countStudents(ctx context.Context, tx *gorm.DB, department string) (int64, error) {
	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.Student{}).
		Where("department = ?", department).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) CountPolls(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	return cached(ctx, r, tx, "polls:"+classIDsKey(classIDs), func() (int64, error) {
		return r.countPolls(ctx, tx, classIDs)
	})
}

func (r *dashboardRepository) countPolls(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {

	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.Poll{}).
		Where("class_id IN ?", classIDs).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count polls: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) CountResponses(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	return cached(ctx, r, tx, "responses:"+classIDsKey(classIDs), func() (int64, error) {
		return r.countResponses(ctx, tx, classIDs)
	})
}

func (r *dashboardRepository) countResponses(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {

	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.PollResponse{}).
		Joins("JOIN polls ON polls.id = poll_responses.poll_id").
		Where("polls.class_id IN ?", classIDs).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}

	return count, nil
}

// ===== BREAKDOWNS =====

func (r *dashboardRepository) PollCountsByCategory(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]models.CategoryCount, error) {
	if len(classIDs) == 0 {
		return []models.CategoryCount{}, nil
	}
	return cached(ctx, r, tx, "categories:"+classIDsKey(classIDs), func() ([]models.CategoryCount, error) {
		return r.pollCountsByCategory(ctx, tx, classIDs)
	})
}

func (r *dashboardRepository) pollCountsByCategory(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]models.CategoryCount, error) {
	results := []models.CategoryCount{}
	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.Poll{}).
		Select("poll_category AS category, COUNT(*) AS count").
		Where("class_id IN ?", classIDs).
		Group("poll_category").
		Order("count DESC, poll_category ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get poll category counts: %w", err)
	}

	return results, nil
}

func (r *dashboardRepository) RecentResponses(ctx context.Context, tx *gorm.DB, classIDs []uint, limit int) ([]models.RecentResponse, error) {
	results := []models.RecentResponse{}
	if len(classIDs) == 0 {
		return results, nil
	}
	if limit <= 0 {
		limit = 10
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Table("poll_responses").
		Select(`poll_responses.poll_id,
			polls.title AS poll_title,
			poll_responses.student_reg_no,
			COALESCE(students.name, '') AS student_name,
			COALESCE(students.section, '') AS section,
			poll_responses.response,
			poll_responses.responded_at`).
		Joins("JOIN polls ON polls.id = poll_responses.poll_id").
		Joins("LEFT JOIN students ON students.reg_no = poll_responses.student_reg_no").
		Where("polls.class_id IN ?", classIDs).
		Order("poll_responses.responded_at DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent responses: %w", err)
	}

	return results, nil
}

// ===== ACTIVITY TRENDS =====

func (r *dashboardRepository) ResponseTrend(ctx context.Context, tx *gorm.DB, classIDs []uint, days int, now time.Time) ([]models.TrendPoint, error) {
	if days <= 0 {
		days = 7
	}

	db := r.getDB(tx)
	results := make([]models.TrendPoint, 0, days)

	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		endOfDay := startOfDay.AddDate(0, 0, 1)

		point := models.TrendPoint{
			Period: startOfDay.Format("Mon"),
			Date:   startOfDay,
		}

		if len(classIDs) > 0 {
			var counts struct {
				Responses int64
				Students  int64
			}
			if err := db.WithContext(ctx).
				Table("poll_responses").
				Select("COUNT(*) AS responses, COUNT(DISTINCT poll_responses.student_reg_no) AS students").
				Joins("JOIN polls ON polls.id = poll_responses.poll_id").
				Where("polls.class_id IN ?", classIDs).
				Where("poll_responses.responded_at >= ? AND poll_responses.responded_at < ?", startOfDay, endOfDay).
				Scan(&counts).Error; err != nil {
				return nil, fmt.Errorf("failed to get response trend: %w", err)
			}
			point.Responses = counts.Responses
			point.Students = counts.Students
		}

		results = append(results, point)
	}

	return results, nil
}
