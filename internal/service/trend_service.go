package service

import (
	"context"
	"log"
	"time"

	"github.com/gustavohdab/rettiwt-backend/internal/cache"
	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/featureflags"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/notifications"
	"github.com/gustavohdab/rettiwt-backend/internal/observability"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
)

// TrendsPushFlag gates the realtime trends:update broadcast after new content.
const TrendsPushFlag = "trends_push"

// broadcastTrendsLimit is how many hashtags ride the trends:update push.
const broadcastTrendsLimit = 10

// TrendService serves the discovery surface: trending hashtags, popular
// tweets, and per-hashtag feeds. Aggregates are cached; new content triggers
// an asynchronous recompute-and-broadcast.
type TrendService struct {
	trends repository.TrendRepository
	pusher fanout.Pusher
	flags  *featureflags.Manager
}

// NewTrendService creates a TrendService. pusher may be nil when realtime
// push is not wired.
func NewTrendService(trends repository.TrendRepository, pusher fanout.Pusher, flags *featureflags.Manager) *TrendService {
	return &TrendService{trends: trends, pusher: pusher, flags: flags}
}

// TrendingHashtags returns the top hashtags over the trailing window,
// cache-aside with a short TTL.
func (s *TrendService) TrendingHashtags(ctx context.Context, limit int) ([]models.TrendingHashtag, error) {
	var trends []models.TrendingHashtag
	err := cache.Aside(ctx, cache.TrendingHashtagsKey(limit), &trends, cache.TrendsTTL, func() error {
		var err error
		trends, err = s.trends.TrendingHashtags(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if trends == nil {
		trends = []models.TrendingHashtag{}
	}
	return trends, nil
}

// PopularTweets returns the window's most-engaged tweets. Only the anonymous
// view is cached; viewer-annotated pages bypass the cache.
func (s *TrendService) PopularTweets(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if viewerID != 0 || offset != 0 {
		return s.trends.PopularTweets(ctx, viewerID, limit, offset)
	}

	var tweets []*models.Tweet
	err := cache.Aside(ctx, cache.PopularTweetsKey(limit), &tweets, cache.TrendsTTL, func() error {
		var err error
		tweets, err = s.trends.PopularTweets(ctx, 0, limit, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tweets, nil
}

// TweetsByHashtag returns the hashtag's feed, newest first.
func (s *TrendService) TweetsByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	return s.trends.TweetsByHashtag(ctx, tag, viewerID, limit, offset)
}

// RecomputeAndBroadcast drops the cached trend lists, recomputes the top
// hashtags, and pushes a trends:update event to every connected client. The
// dispatcher calls it after each stored tweet; failures are logged only.
func (s *TrendService) RecomputeAndBroadcast(ctx context.Context) {
	if s.flags != nil && !s.flags.Enabled(TrendsPushFlag, 0) {
		return
	}

	start := time.Now()
	cache.InvalidateTrends(ctx)

	trends, err := s.trends.TrendingHashtags(ctx, broadcastTrendsLimit)
	if err != nil {
		log.Printf("trends: recompute: %v", err)
		return
	}
	_ = cache.SetJSON(ctx, cache.TrendingHashtagsKey(broadcastTrendsLimit), trends, cache.TrendsTTL)
	observability.TrendRecomputeDuration.Observe(time.Since(start).Seconds())

	if s.pusher == nil {
		return
	}
	payload := notifications.TrendsPayload{TrendingHashtags: trends}
	if err := s.pusher.PublishBroadcast(ctx, notifications.EventTrendsUpdate, payload); err != nil {
		log.Printf("trends: broadcast update: %v", err)
	}
}
