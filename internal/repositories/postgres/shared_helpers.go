package postgres

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// applyPollFilters applies the scope filters shared by poll queries
func applyPollFilters(query *gorm.DB, filters repositories.PollFilters) *gorm.DB {
	if len(filters.ClassIDs) > 0 {
		query = query.Where("class_id IN ?", filters.ClassIDs)
	}
	if filters.StaffID != nil {
		query = query.Where("staff_id = ?", *filters.StaffID)
	}
	if filters.Category != nil {
		query = query.Where("poll_category = ?", *filters.Category)
	}
	if filters.ActiveAt != nil {
		query = query.Where("deadline IS NULL OR deadline >= ?", *filters.ActiveAt)
	}
	return query
}

// inSection matches a department exactly and a section case-insensitively
func inSection(department, section string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("department = ? AND LOWER(section) = LOWER(?)", department, strings.TrimSpace(section))
	}
}

// applyPagination clamps limit/offset to sane bounds
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// pollListCacheKey encodes a filter set; ok is false for filters that must not be cached
func pollListCacheKey(filters repositories.PollFilters) (string, bool) {
	// time-bound lists change every second
	if filters.ActiveAt != nil {
		return "", false
	}

	staff := "-"
	if filters.StaffID != nil {
		staff = fmt.Sprint(*filters.StaffID)
	}
	category := "-"
	if filters.Category != nil {
		category = strings.ReplaceAll(string(*filters.Category), " ", "_")
	}

	return fmt.Sprintf("list:c=%s:s=%s:k=%s:%d:%d",
		classIDsKey(filters.ClassIDs), staff, category, filters.Limit, filters.Offset), true
}

// classIDsKey joins class ids in ascending order without touching the caller's slice
func classIDsKey(classIDs []uint) string {
	sorted := append([]uint(nil), classIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	ids := make([]string, len(sorted))
	for i, id := range sorted {
		ids[i] = fmt.Sprint(id)
	}
	return strings.Join(ids, ",")
}

// uniqueStrings returns values without duplicates, keeping first occurrence order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
