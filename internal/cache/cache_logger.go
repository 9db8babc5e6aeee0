package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// Key builders shared by repositories and invalidation

func PollKey(pollID uint) string {
	return fmt.Sprintf("id:%d", pollID)
}

func PollListPattern() string {
	return "list:*"
}

func ResponsesByPollKey(pollID uint) string {
	return fmt.Sprintf("poll:%d", pollID)
}

func ResponsesByStudentKey(regNo string) string {
	return "student:" + regNo
}

func EmailKey(kind, email string) string {
	return kind + ":email:" + strings.ToLower(strings.TrimSpace(email))
}

func RosterClassKey(classID uint) string {
	return fmt.Sprintf("roster:class:%d", classID)
}

func RosterDeptKey(department string) string {
	return "roster:dept:" + strings.ToLower(department)
}

// InvalidatePollCache drops a poll, every poll listing and derived stats
func InvalidatePollCache(ctx context.Context, cm *CacheManager, pollID uint) {
	SafeDelete(ctx, cm.Poll, PollKey(pollID))
	SafeDelete(ctx, cm.Response, ResponsesByPollKey(pollID))
	SafeInvalidatePattern(ctx, cm.Response, ResponsesByStudentKey("*"))
	SafeInvalidatePattern(ctx, cm.Poll, PollListPattern())
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}

// InvalidateResponseCache drops cached responses for one poll/student pair
func InvalidateResponseCache(ctx context.Context, cm *CacheManager, pollID uint, regNo string) {
	keys := []string{ResponsesByPollKey(pollID)}
	if regNo != "" {
		keys = append(keys, ResponsesByStudentKey(regNo))
	}
	SafeDelete(ctx, cm.Response, keys...)
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}

// InvalidateDirectoryCache drops all directory lookups
func InvalidateDirectoryCache(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Directory, "*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}
