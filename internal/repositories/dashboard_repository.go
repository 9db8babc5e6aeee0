package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// DashboardRepository interface for department dashboard counters
type DashboardRepository interface {
	CountStudents(ctx context.Context, tx *gorm.DB, department string) (int64, error)
	CountPolls(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error)
	CountResponses(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error)

	PollCountsByCategory(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]models.CategoryCount, error)
	RecentResponses(ctx context.Context, tx *gorm.DB, classIDs []uint, limit int) ([]models.RecentResponse, error)
	// ResponseTrend returns one point per day for the days ending at now, oldest first
	ResponseTrend(ctx context.Context, tx *gorm.DB, classIDs []uint, days int, now time.Time) ([]models.TrendPoint, error)
}
