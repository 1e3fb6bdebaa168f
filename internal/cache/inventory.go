package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache-owned key prefixes. Rate-limit counters (rl:), WebSocket tickets
// (ws_ticket:), and revoked token ids (blacklist:) live in Redis too but are
// owned by the middleware and server packages.
const (
	UserKeyPrefix          = "user:%d"
	TrendingHashtagsPrefix = "trends:hashtags:%d"
	PopularTweetsPrefix    = "trends:popular:%d"
)

const (
	UserTTL   = 5 * time.Minute
	TrendsTTL = 5 * time.Minute
)

// UserKey returns the cache key for a user profile by id.
func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// TrendingHashtagsKey returns the cache key for the trending hashtags list at
// a given limit.
func TrendingHashtagsKey(limit int) string {
	return fmt.Sprintf(TrendingHashtagsPrefix, limit)
}

// PopularTweetsKey returns the cache key for the popular tweets list at a
// given limit.
func PopularTweetsKey(limit int) string {
	return fmt.Sprintf(PopularTweetsPrefix, limit)
}

// Invalidate removes a key, best-effort.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached profile for a user. Called after profile
// updates and after any follow transition touching the user's counters.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateTrends drops cached trend lists after a recompute, for the limits
// commonly served.
func InvalidateTrends(ctx context.Context) {
	if client == nil {
		return
	}
	for _, limit := range []int{5, 10, 20, 50} {
		client.Del(ctx, TrendingHashtagsKey(limit), PopularTweetsKey(limit))
	}
}
