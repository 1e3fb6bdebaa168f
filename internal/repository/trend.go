package repository

import (
	"context"
	"strings"
	"time"

	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"gorm.io/gorm"
)

// TrendWindow is the trailing window trend aggregates are computed over.
const TrendWindow = 7 * 24 * time.Hour

// TrendRepository defines the aggregate queries behind trending hashtags,
// popular tweets, and hashtag search.
type TrendRepository interface {
	TrendingHashtags(ctx context.Context, limit int) ([]models.TrendingHashtag, error)
	PopularTweets(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Tweet, error)
	TweetsByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Tweet, error)
	SearchHashtags(ctx context.Context, query string, limit, offset int) ([]models.TrendingHashtag, error)
	CountHashtags(ctx context.Context, query string) (int64, error)
}

type trendRepository struct {
	db *gorm.DB
}

// NewTrendRepository creates a new trend repository.
func NewTrendRepository(db *gorm.DB) TrendRepository {
	return &trendRepository{db: db}
}

func windowStart() time.Time {
	return time.Now().Add(-TrendWindow)
}

// TrendingHashtags groups hashtag occurrences over the window, ranked by
// occurrence count and then by summed engagement across the grouped tweets.
func (r *trendRepository) TrendingHashtags(ctx context.Context, limit int) ([]models.TrendingHashtag, error) {
	var trends []models.TrendingHashtag
	err := r.db.WithContext(ctx).
		Table("tweet_hashtags").
		Select(
			"tweet_hashtags.tag AS tag, "+
				"COUNT(*) AS count, "+
				"COALESCE(SUM(tweets.likes_count + tweets.retweets_count + tweets.replies_count), 0) AS engagement_score",
		).
		Joins("JOIN tweets ON tweets.id = tweet_hashtags.tweet_id").
		Where("tweets.created_at > ?", windowStart()).
		Where("tweets.is_deleted = ?", false).
		Group("tweet_hashtags.tag").
		Order("count DESC, engagement_score DESC").
		Limit(limit).
		Scan(&trends).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return trends, nil
}

// PopularTweets ranks the window's tweets by raw engagement counters.
func (r *trendRepository) PopularTweets(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Where("tweets.created_at > ?", windowStart()).
		Where("tweets.is_deleted = ?", false).
		Order("tweets.likes_count DESC, tweets.retweets_count DESC, tweets.replies_count DESC, tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *trendRepository) TweetsByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Joins("JOIN tweet_hashtags ON tweet_hashtags.tweet_id = tweets.id").
		Where("tweet_hashtags.tag = ?", strings.ToLower(tag)).
		Where("tweets.is_deleted = ?", false).
		Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

// SearchHashtags substring-matches tags over the window, ranked like the
// trending list.
func (r *trendRepository) SearchHashtags(ctx context.Context, query string, limit, offset int) ([]models.TrendingHashtag, error) {
	var trends []models.TrendingHashtag
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Table("tweet_hashtags").
		Select(
			"tweet_hashtags.tag AS tag, "+
				"COUNT(*) AS count, "+
				"COALESCE(SUM(tweets.likes_count + tweets.retweets_count + tweets.replies_count), 0) AS engagement_score",
		).
		Joins("JOIN tweets ON tweets.id = tweet_hashtags.tweet_id").
		Where("tweet_hashtags.tag LIKE ?", like).
		Where("tweets.is_deleted = ?", false).
		Group("tweet_hashtags.tag").
		Order("count DESC, engagement_score DESC").
		Limit(limit).
		Offset(offset).
		Scan(&trends).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return trends, nil
}

func (r *trendRepository) CountHashtags(ctx context.Context, query string) (int64, error) {
	var count int64
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Table("tweet_hashtags").
		Joins("JOIN tweets ON tweets.id = tweet_hashtags.tweet_id").
		Where("tweet_hashtags.tag LIKE ?", like).
		Where("tweets.is_deleted = ?", false).
		Distinct("tweet_hashtags.tag").
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
