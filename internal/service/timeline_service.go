package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gustavohdab/rettiwt-backend/internal/featureflags"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
)

// ImpressionTrackingFlag gates the best-effort impression counter writes.
const ImpressionTrackingFlag = "impression_tracking"

const impressionTimeout = 3 * time.Second

// TimelineService is the pull-based read path: it assembles the home feed by
// fanning in over the follow graph, serves author pages and threads, and
// records impressions as a non-blocking side effect.
type TimelineService struct {
	tweets repository.TweetRepository
	users  repository.UserRepository
	flags  *featureflags.Manager
}

// NewTimelineService creates a timeline assembler.
func NewTimelineService(
	tweets repository.TweetRepository,
	users repository.UserRepository,
	flags *featureflags.Manager,
) *TimelineService {
	return &TimelineService{tweets: tweets, users: users, flags: flags}
}

// Thread is one tweet in context: its immediate parent (one level up, nil
// for top-level tweets or when the parent was deleted) and its direct
// replies oldest-first.
type Thread struct {
	Tweet   *models.Tweet   `json:"tweet"`
	Parent  *models.Tweet   `json:"parent,omitempty"`
	Replies []*models.Tweet `json:"replies"`
}

// HomeTimeline returns the viewer's feed: tweets authored by anyone they
// follow plus their own, newest first.
func (s *TimelineService) HomeTimeline(ctx context.Context, userID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error) {
	tweets, err := s.tweets.Timeline(ctx, userID, includeReplies, limit, offset)
	if err != nil {
		return nil, err
	}
	s.recordImpressions(userID, tweets)
	return tweets, nil
}

// UserTweets returns an author page: top-level tweets only.
func (s *TimelineService) UserTweets(ctx context.Context, username string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	author, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	tweets, err := s.tweets.ByAuthor(ctx, author.ID, viewerID, false, limit, offset)
	if err != nil {
		return nil, err
	}
	s.recordImpressions(viewerID, tweets)
	return tweets, nil
}

// UserReplies returns an author page including replies.
func (s *TimelineService) UserReplies(ctx context.Context, username string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	author, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	tweets, err := s.tweets.ByAuthor(ctx, author.ID, viewerID, true, limit, offset)
	if err != nil {
		return nil, err
	}
	s.recordImpressions(viewerID, tweets)
	return tweets, nil
}

// UserLikes returns the tweets a user liked, most recently liked first.
func (s *TimelineService) UserLikes(ctx context.Context, username string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tweets.LikedBy(ctx, user.ID, viewerID, limit, offset)
}

// GetTweet returns a single tweet with viewer annotations.
func (s *TimelineService) GetTweet(ctx context.Context, tweetID, viewerID uint) (*models.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID, viewerID)
	if err != nil {
		return nil, err
	}
	s.recordImpressions(viewerID, []*models.Tweet{tweet})
	return tweet, nil
}

// GetThread assembles the thread view around one tweet.
func (s *TimelineService) GetThread(ctx context.Context, tweetID, viewerID uint, limit, offset int) (*Thread, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID, viewerID)
	if err != nil {
		return nil, err
	}

	thread := &Thread{Tweet: tweet, Replies: []*models.Tweet{}}

	if tweet.InReplyToID != nil {
		parent, err := s.tweets.GetByID(ctx, *tweet.InReplyToID, viewerID)
		if err != nil {
			// A deleted parent hides itself but not the thread.
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeNotFound {
				return nil, err
			}
		} else {
			thread.Parent = parent
		}
	}

	replies, err := s.tweets.Replies(ctx, tweetID, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	thread.Replies = replies

	s.recordImpressions(viewerID, append([]*models.Tweet{tweet}, replies...))
	return thread, nil
}

// Bookmarks returns the viewer's saved tweets, most recently saved first.
func (s *TimelineService) Bookmarks(ctx context.Context, userID uint, limit, offset int) ([]*models.Tweet, error) {
	return s.tweets.BookmarkedBy(ctx, userID, limit, offset)
}

func (s *TimelineService) resolveUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", username)
	}
	return user, nil
}

// recordImpressions bumps the analytics counter for a page of read tweets in
// the background. The read path never waits on it and never fails with it.
func (s *TimelineService) recordImpressions(viewerID uint, tweets []*models.Tweet) {
	if len(tweets) == 0 {
		return
	}
	if s.flags != nil && !s.flags.Enabled(ImpressionTrackingFlag, viewerID) {
		return
	}

	ids := make([]uint, len(tweets))
	for i, t := range tweets {
		ids[i] = t.ID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), impressionTimeout)
		defer cancel()
		if err := s.tweets.IncrementImpressions(ctx, ids); err != nil {
			log.Printf("timeline: record impressions for %d tweets: %v", len(ids), err)
		}
	}()
}
