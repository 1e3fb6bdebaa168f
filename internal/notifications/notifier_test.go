package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, EventNotificationNew, nil))
	assert.NoError(t, n.PublishBroadcast(context.Background(), EventTweetNew, nil))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), nil))
}

func TestMarshalEvent(t *testing.T) {
	t.Parallel()

	msg, err := MarshalEvent(EventUserFollow, FollowChange{FollowerID: 1, FollowingID: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user:follow","payload":{"followerId":1,"followingId":2}}`, msg)

	msg, err = MarshalEvent(EventTrendsUpdate, TrendsPayload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"trends:update","payload":{"trendingHashtags":null}}`, msg)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	payloads := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		atomic.AddInt32(&received, 1)
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, EventNotificationNew, "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(20 * time.Millisecond)

	// Drain the pre-cancel message to avoid false positives.
	select {
	case <-payloads:
	default:
	}

	require.NoError(t, n.PublishUser(context.Background(), 1, EventNotificationNew, "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload != ""
		default:
			return false
		}
	}, 200*time.Millisecond, testPollInterval)
}
