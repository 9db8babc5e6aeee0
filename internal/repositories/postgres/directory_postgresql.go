package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/cache"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

type DirectoryPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDirectoryPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.DirectoryRepository {
	return &DirectoryPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ===== STUDENTS =====

func (d *DirectoryPostgreSQL) GetStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, cache.EmailKey("student", email), cache.DirectoryCacheConfig.TTL, func() (*models.Student, error) {
		var student models.Student
		if err := d.db.WithContext(ctx).
			Where("LOWER(email) = ?", normalizeEmail(email)).
			First(&student).Error; err != nil {
			return nil, fmt.Errorf("failed to get student by email: %w", err)
		}
		return &student, nil
	})
}

func (d *DirectoryPostgreSQL) GetStudentsByRegNos(ctx context.Context, regNos []string) ([]*models.Student, error) {
	regNos = uniqueStrings(regNos)
	if len(regNos) == 0 {
		return []*models.Student{}, nil
	}

	var students []*models.Student
	if err := d.db.WithContext(ctx).
		Where("reg_no IN ?", regNos).
		Order("section ASC, name ASC").
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	return students, nil
}

func (d *DirectoryPostgreSQL) ListStudentsByClass(ctx context.Context, class *models.Class) ([]*models.Student, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, cache.RosterClassKey(class.ID), cache.DirectoryCacheConfig.TTL, func() ([]*models.Student, error) {
		var students []*models.Student
		if err := d.db.WithContext(ctx).
			Scopes(inSection(class.Department, class.Section)).
			Order("name ASC").
			Find(&students).Error; err != nil {
			return nil, fmt.Errorf("failed to list class students: %w", err)
		}
		return students, nil
	})
}

func (d *DirectoryPostgreSQL) ListStudentsByDepartment(ctx context.Context, department string) ([]*models.Student, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, cache.RosterDeptKey(department), cache.DirectoryCacheConfig.TTL, func() ([]*models.Student, error) {
		var students []*models.Student
		if err := d.db.WithContext(ctx).
			Where("department = ?", department).
			Order("section ASC, name ASC").
			Find(&students).Error; err != nil {
			return nil, fmt.Errorf("failed to list department students: %w", err)
		}
		return students, nil
	})
}

// ===== STAFF =====

func (d *DirectoryPostgreSQL) GetStaffByEmail(ctx context.Context, email string) (*models.Staff, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, cache.EmailKey("staff", email), cache.DirectoryCacheConfig.TTL, func() (*models.Staff, error) {
		var staff models.Staff
		if err := d.db.WithContext(ctx).
			Where("LOWER(email) = ?", normalizeEmail(email)).
			First(&staff).Error; err != nil {
			return nil, fmt.Errorf("failed to get staff by email: %w", err)
		}
		return &staff, nil
	})
}

func (d *DirectoryPostgreSQL) GetHODByDepartment(ctx context.Context, department string) (*models.Staff, error) {
	var staff models.Staff
	if err := d.db.WithContext(ctx).
		Where("department = ? AND UPPER(designation) = ?", department, models.DesignationHOD).
		First(&staff).Error; err != nil {
		return nil, fmt.Errorf("failed to get department head: %w", err)
	}
	return &staff, nil
}

// ===== CLASSES =====

func (d *DirectoryPostgreSQL) GetClassByID(ctx context.Context, id uint) (*models.Class, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, fmt.Sprintf("class:id:%d", id), cache.DirectoryCacheConfig.TTL, func() (*models.Class, error) {
		var class models.Class
		if err := d.db.WithContext(ctx).First(&class, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get class: %w", err)
		}
		return &class, nil
	})
}

func (d *DirectoryPostgreSQL) GetClassBySection(ctx context.Context, department, section string) (*models.Class, error) {
	var class models.Class
	if err := d.db.WithContext(ctx).
		Scopes(inSection(department, section)).
		First(&class).Error; err != nil {
		return nil, fmt.Errorf("failed to get class %s %s: %w", department, section, err)
	}
	return &class, nil
}

func (d *DirectoryPostgreSQL) ListClassesByDepartment(ctx context.Context, department string) ([]*models.Class, error) {
	return cache.Fetch(ctx, d.cacheManager.Directory, "class:dept:"+strings.ToLower(department), cache.DirectoryCacheConfig.TTL, func() ([]*models.Class, error) {
		var classes []*models.Class
		if err := d.db.WithContext(ctx).
			Where("department = ?", department).
			Order("section ASC").
			Find(&classes).Error; err != nil {
			return nil, fmt.Errorf("failed to list classes: %w", err)
		}
		return classes, nil
	})
}
