package events

import (
	"context"

	"github.com/SAP-F-2025/poll-service/internal/cache"
)

// CacheInvalidationHandler drops cached entries touched by a change, including
// writes made outside this service.
func CacheInvalidationHandler(cm *cache.CacheManager) ChangeHandler {
	return func(ctx context.Context, change Change) {
		switch change.Table {
		case TablePolls:
			cache.InvalidatePollCache(ctx, cm, change.PollID())
		case TableResponses:
			cache.InvalidateResponseCache(ctx, cm, change.PollID(), change.StudentRegNo())
		case TableStudents:
			cache.InvalidateDirectoryCache(ctx, cm)
		default:
			cache.SafeInvalidatePattern(ctx, cm.Poll, "*")
			cache.SafeInvalidatePattern(ctx, cm.Response, "*")
			cache.InvalidateDirectoryCache(ctx, cm)
		}
	}
}
