package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"gorm.io/gorm"
)

// TweetRepository defines persistence operations for tweets, engagement
// relations, and the denormalized counters that mirror them.
type TweetRepository interface {
	Create(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Tweet, error)
	Delete(ctx context.Context, id uint) error

	Timeline(ctx context.Context, userID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error)
	ByAuthor(ctx context.Context, authorID, viewerID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error)
	LikedBy(ctx context.Context, userID, viewerID uint, limit, offset int) ([]*models.Tweet, error)
	Replies(ctx context.Context, tweetID, viewerID uint, limit, offset int) ([]*models.Tweet, error)
	BookmarkedBy(ctx context.Context, userID uint, limit, offset int) ([]*models.Tweet, error)

	Like(ctx context.Context, userID, tweetID uint) error
	Unlike(ctx context.Context, userID, tweetID uint) error
	Retweet(ctx context.Context, userID, tweetID uint) error
	Unretweet(ctx context.Context, userID, tweetID uint) error
	AddBookmark(ctx context.Context, userID, tweetID uint) error
	RemoveBookmark(ctx context.Context, userID, tweetID uint) error

	Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]*models.Tweet, error)
	CountSearch(ctx context.Context, query string) (int64, error)
	IncrementImpressions(ctx context.Context, ids []uint) error
}

type tweetRepository struct {
	db *gorm.DB
}

// NewTweetRepository creates a new tweet repository.
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{db: db}
}

// applyTweetDetails annotates each row with the viewer-relative engagement
// flags in the same query. Counters are real columns, so only the membership
// flags need subqueries.
func applyTweetDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID != 0 {
		return db.Select(
			"tweets.*, "+
				"EXISTS(SELECT 1 FROM tweet_likes WHERE tweet_likes.tweet_id = tweets.id AND tweet_likes.user_id = ?) AS liked, "+
				"EXISTS(SELECT 1 FROM tweet_retweets WHERE tweet_retweets.tweet_id = tweets.id AND tweet_retweets.user_id = ?) AS retweeted, "+
				"EXISTS(SELECT 1 FROM bookmarks WHERE bookmarks.tweet_id = tweets.id AND bookmarks.user_id = ?) AS bookmarked",
			viewerID, viewerID, viewerID,
		)
	}
	return db.Select("tweets.*, false AS liked, false AS retweeted, false AS bookmarked")
}

func preloadTweetAssocs(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Hashtags", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Mentions").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("QuotedTweet").
		Preload("QuotedTweet.Author")
}

// Create inserts the tweet with its derived associations and bumps the
// parent or quoted tweet's counter in the same transaction.
func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tweet).Error; err != nil {
			return err
		}
		if tweet.InReplyToID != nil {
			if err := tx.Exec(
				`UPDATE tweets SET replies_count = replies_count + 1 WHERE id = ?`, *tweet.InReplyToID,
			).Error; err != nil {
				return err
			}
		}
		if tweet.QuotedTweetID != nil {
			return tx.Exec(
				`UPDATE tweets SET quotes_count = quotes_count + 1 WHERE id = ?`, *tweet.QuotedTweetID,
			).Error
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Tweet, error) {
	var tweet models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Where("tweets.id = ?", id).
		Where("tweets.is_deleted = ?", false).
		First(&tweet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("tweet", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &tweet, nil
}

// Delete soft-deletes. Existing likes, retweets, replies, and counters are
// left untouched; readers filter on is_deleted.
func (r *tweetRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tweets SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_deleted = FALSE`, id,
	)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("tweet", id)
	}
	return nil
}

// Timeline is the pull-based home feed: tweets authored by the user or
// anyone they follow, newest first.
func (r *tweetRepository) Timeline(ctx context.Context, userID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	q := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), userID)).
		Where(
			"(tweets.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?) OR tweets.author_id = ?)",
			userID, userID,
		).
		Where("tweets.is_deleted = ?", false)
	if !includeReplies {
		q = q.Where("tweets.in_reply_to_id IS NULL")
	}
	err := q.Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) ByAuthor(ctx context.Context, authorID, viewerID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	q := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Where("tweets.author_id = ?", authorID).
		Where("tweets.is_deleted = ?", false)
	if !includeReplies {
		q = q.Where("tweets.in_reply_to_id IS NULL")
	}
	err := q.Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) LikedBy(ctx context.Context, userID, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Joins("JOIN tweet_likes ON tweet_likes.tweet_id = tweets.id").
		Where("tweet_likes.user_id = ?", userID).
		Where("tweets.is_deleted = ?", false).
		Order("tweet_likes.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

// Replies lists direct replies oldest-first for thread assembly.
func (r *tweetRepository) Replies(ctx context.Context, tweetID, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Where("tweets.in_reply_to_id = ?", tweetID).
		Where("tweets.is_deleted = ?", false).
		Order("tweets.created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) BookmarkedBy(ctx context.Context, userID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), userID)).
		Joins("JOIN bookmarks ON bookmarks.tweet_id = tweets.id").
		Where("bookmarks.user_id = ?", userID).
		Where("tweets.is_deleted = ?", false).
		Order("bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

// applyEngagement inserts a relation row and bumps its counter in one
// transaction. The idempotent insert reports AlreadyDone without touching
// the counter, so membership and count move together or not at all.
func (r *tweetRepository) applyEngagement(ctx context.Context, userID, tweetID uint, insertSQL, bumpSQL, alreadyMsg string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(insertSQL, userID, tweetID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewAlreadyDoneError(alreadyMsg)
		}
		if bumpSQL == "" {
			return nil
		}
		return tx.Exec(bumpSQL, tweetID).Error
	})
	return asRepoError(err)
}

// revokeEngagement deletes a relation row and decrements its counter,
// reporting NotDone when no row existed. Counters floor at zero.
func (r *tweetRepository) revokeEngagement(ctx context.Context, userID, tweetID uint, deleteSQL, dropSQL, notDoneMsg string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(deleteSQL, userID, tweetID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotDoneError(notDoneMsg)
		}
		if dropSQL == "" {
			return nil
		}
		return tx.Exec(dropSQL, tweetID).Error
	})
	return asRepoError(err)
}

func (r *tweetRepository) Like(ctx context.Context, userID, tweetID uint) error {
	return r.applyEngagement(ctx, userID, tweetID,
		`INSERT INTO tweet_likes (user_id, tweet_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		`UPDATE tweets SET likes_count = likes_count + 1 WHERE id = ?`,
		"tweet already liked",
	)
}

func (r *tweetRepository) Unlike(ctx context.Context, userID, tweetID uint) error {
	return r.revokeEngagement(ctx, userID, tweetID,
		`DELETE FROM tweet_likes WHERE user_id = ? AND tweet_id = ?`,
		`UPDATE tweets SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0`,
		"tweet not liked",
	)
}

func (r *tweetRepository) Retweet(ctx context.Context, userID, tweetID uint) error {
	return r.applyEngagement(ctx, userID, tweetID,
		`INSERT INTO tweet_retweets (user_id, tweet_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		`UPDATE tweets SET retweets_count = retweets_count + 1 WHERE id = ?`,
		"tweet already retweeted",
	)
}

func (r *tweetRepository) Unretweet(ctx context.Context, userID, tweetID uint) error {
	return r.revokeEngagement(ctx, userID, tweetID,
		`DELETE FROM tweet_retweets WHERE user_id = ? AND tweet_id = ?`,
		`UPDATE tweets SET retweets_count = retweets_count - 1 WHERE id = ? AND retweets_count > 0`,
		"tweet not retweeted",
	)
}

// Bookmarks live on the user side of the model; the tweet row carries no
// bookmark counter.
func (r *tweetRepository) AddBookmark(ctx context.Context, userID, tweetID uint) error {
	return r.applyEngagement(ctx, userID, tweetID,
		`INSERT INTO bookmarks (user_id, tweet_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		"",
		"tweet already bookmarked",
	)
}

func (r *tweetRepository) RemoveBookmark(ctx context.Context, userID, tweetID uint) error {
	return r.revokeEngagement(ctx, userID, tweetID,
		`DELETE FROM bookmarks WHERE user_id = ? AND tweet_id = ?`,
		"",
		"tweet not bookmarked",
	)
}

func (r *tweetRepository) Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	like := "%" + strings.ToLower(query) + "%"
	err := preloadTweetAssocs(applyTweetDetails(r.db.WithContext(ctx), viewerID)).
		Where("LOWER(tweets.content) LIKE ?", like).
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

func (r *tweetRepository) CountSearch(ctx context.Context, query string) (int64, error) {
	var count int64
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Model(&models.Tweet{}).
		Where("LOWER(content) LIKE ?", like).
		Where("is_deleted = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// IncrementImpressions bulk-bumps the analytics counter for a page of read
// tweets. Callers treat failures as best-effort.
func (r *tweetRepository) IncrementImpressions(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Exec(
		`UPDATE tweets SET impressions = impressions + 1 WHERE id IN ?`, ids,
	).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
