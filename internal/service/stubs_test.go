package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tweetRepoStub is a stub for repository.TweetRepository. Nil funcs behave as
// benign no-ops.
type tweetRepoStub struct {
	createFn               func(context.Context, *models.Tweet) error
	getByIDFn              func(context.Context, uint, uint) (*models.Tweet, error)
	deleteFn               func(context.Context, uint) error
	timelineFn             func(context.Context, uint, bool, int, int) ([]*models.Tweet, error)
	byAuthorFn             func(context.Context, uint, uint, bool, int, int) ([]*models.Tweet, error)
	likedByFn              func(context.Context, uint, uint, int, int) ([]*models.Tweet, error)
	repliesFn              func(context.Context, uint, uint, int, int) ([]*models.Tweet, error)
	bookmarkedByFn         func(context.Context, uint, int, int) ([]*models.Tweet, error)
	likeFn                 func(context.Context, uint, uint) error
	unlikeFn               func(context.Context, uint, uint) error
	retweetFn              func(context.Context, uint, uint) error
	unretweetFn            func(context.Context, uint, uint) error
	addBookmarkFn          func(context.Context, uint, uint) error
	removeBookmarkFn       func(context.Context, uint, uint) error
	searchFn               func(context.Context, string, uint, int, int) ([]*models.Tweet, error)
	countSearchFn          func(context.Context, string) (int64, error)
	incrementImpressionsFn func(context.Context, []uint) error
}

func (s *tweetRepoStub) Create(ctx context.Context, t *models.Tweet) error {
	if s.createFn != nil {
		return s.createFn(ctx, t)
	}
	t.ID = 1
	return nil
}
func (s *tweetRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Tweet, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id, viewerID)
	}
	return &models.Tweet{ID: id}, nil
}
func (s *tweetRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}
func (s *tweetRepoStub) Timeline(ctx context.Context, userID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error) {
	if s.timelineFn != nil {
		return s.timelineFn(ctx, userID, includeReplies, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) ByAuthor(ctx context.Context, authorID, viewerID uint, includeReplies bool, limit, offset int) ([]*models.Tweet, error) {
	if s.byAuthorFn != nil {
		return s.byAuthorFn(ctx, authorID, viewerID, includeReplies, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) LikedBy(ctx context.Context, userID, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.likedByFn != nil {
		return s.likedByFn(ctx, userID, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) Replies(ctx context.Context, tweetID, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.repliesFn != nil {
		return s.repliesFn(ctx, tweetID, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) BookmarkedBy(ctx context.Context, userID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.bookmarkedByFn != nil {
		return s.bookmarkedByFn(ctx, userID, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) Like(ctx context.Context, userID, tweetID uint) error {
	if s.likeFn != nil {
		return s.likeFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) Unlike(ctx context.Context, userID, tweetID uint) error {
	if s.unlikeFn != nil {
		return s.unlikeFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) Retweet(ctx context.Context, userID, tweetID uint) error {
	if s.retweetFn != nil {
		return s.retweetFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) Unretweet(ctx context.Context, userID, tweetID uint) error {
	if s.unretweetFn != nil {
		return s.unretweetFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) AddBookmark(ctx context.Context, userID, tweetID uint) error {
	if s.addBookmarkFn != nil {
		return s.addBookmarkFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) RemoveBookmark(ctx context.Context, userID, tweetID uint) error {
	if s.removeBookmarkFn != nil {
		return s.removeBookmarkFn(ctx, userID, tweetID)
	}
	return nil
}
func (s *tweetRepoStub) Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, query, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *tweetRepoStub) CountSearch(ctx context.Context, query string) (int64, error) {
	if s.countSearchFn != nil {
		return s.countSearchFn(ctx, query)
	}
	return 0, nil
}
func (s *tweetRepoStub) IncrementImpressions(ctx context.Context, ids []uint) error {
	if s.incrementImpressionsFn != nil {
		return s.incrementImpressionsFn(ctx, ids)
	}
	return nil
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getProfileFn    func(context.Context, string, uint) (*models.User, error)
	updateFn        func(context.Context, *models.User) error
	setActiveFn     func(context.Context, uint, bool) error
	followFn        func(context.Context, uint, uint) error
	unfollowFn      func(context.Context, uint, uint) error
	isFollowingFn   func(context.Context, uint, uint) (bool, error)
	followersFn     func(context.Context, uint, uint, int, int) ([]models.User, error)
	followingFn     func(context.Context, uint, uint, int, int) ([]models.User, error)
	followingIDsFn  func(context.Context, uint) ([]uint, error)
	suggestionsFn   func(context.Context, uint, int) ([]models.User, error)
	searchFn        func(context.Context, string, uint, int, int) ([]models.User, error)
	countSearchFn   func(context.Context, string) (int64, error)
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, u)
	}
	u.ID = 1
	return nil
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.User{ID: id, Username: "someone"}, nil
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn != nil {
		return s.getByEmailFn(ctx, email)
	}
	return nil, nil
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.getByUsernameFn != nil {
		return s.getByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (s *userRepoStub) GetProfile(ctx context.Context, username string, viewerID uint) (*models.User, error) {
	if s.getProfileFn != nil {
		return s.getProfileFn(ctx, username, viewerID)
	}
	return &models.User{Username: username}, nil
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, u)
	}
	return nil
}
func (s *userRepoStub) SetActive(ctx context.Context, id uint, active bool) error {
	if s.setActiveFn != nil {
		return s.setActiveFn(ctx, id, active)
	}
	return nil
}
func (s *userRepoStub) Follow(ctx context.Context, followerID, followeeID uint) error {
	if s.followFn != nil {
		return s.followFn(ctx, followerID, followeeID)
	}
	return nil
}
func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if s.unfollowFn != nil {
		return s.unfollowFn(ctx, followerID, followeeID)
	}
	return nil
}
func (s *userRepoStub) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	if s.isFollowingFn != nil {
		return s.isFollowingFn(ctx, followerID, followeeID)
	}
	return false, nil
}
func (s *userRepoStub) Followers(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error) {
	if s.followersFn != nil {
		return s.followersFn(ctx, userID, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *userRepoStub) Following(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error) {
	if s.followingFn != nil {
		return s.followingFn(ctx, userID, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *userRepoStub) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	if s.followingIDsFn != nil {
		return s.followingIDsFn(ctx, userID)
	}
	return nil, nil
}
func (s *userRepoStub) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.User, error) {
	if s.suggestionsFn != nil {
		return s.suggestionsFn(ctx, viewerID, limit)
	}
	return nil, nil
}
func (s *userRepoStub) Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]models.User, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, query, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *userRepoStub) CountSearch(ctx context.Context, query string) (int64, error) {
	if s.countSearchFn != nil {
		return s.countSearchFn(ctx, query)
	}
	return 0, nil
}

// trendRepoStub is a stub for repository.TrendRepository.
type trendRepoStub struct {
	trendingHashtagsFn func(context.Context, int) ([]models.TrendingHashtag, error)
	popularTweetsFn    func(context.Context, uint, int, int) ([]*models.Tweet, error)
	tweetsByHashtagFn  func(context.Context, string, uint, int, int) ([]*models.Tweet, error)
	searchHashtagsFn   func(context.Context, string, int, int) ([]models.TrendingHashtag, error)
	countHashtagsFn    func(context.Context, string) (int64, error)
}

func (s *trendRepoStub) TrendingHashtags(ctx context.Context, limit int) ([]models.TrendingHashtag, error) {
	if s.trendingHashtagsFn != nil {
		return s.trendingHashtagsFn(ctx, limit)
	}
	return nil, nil
}
func (s *trendRepoStub) PopularTweets(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.popularTweetsFn != nil {
		return s.popularTweetsFn(ctx, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *trendRepoStub) TweetsByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
	if s.tweetsByHashtagFn != nil {
		return s.tweetsByHashtagFn(ctx, tag, viewerID, limit, offset)
	}
	return nil, nil
}
func (s *trendRepoStub) SearchHashtags(ctx context.Context, query string, limit, offset int) ([]models.TrendingHashtag, error) {
	if s.searchHashtagsFn != nil {
		return s.searchHashtagsFn(ctx, query, limit, offset)
	}
	return nil, nil
}
func (s *trendRepoStub) CountHashtags(ctx context.Context, query string) (int64, error) {
	if s.countHashtagsFn != nil {
		return s.countHashtagsFn(ctx, query)
	}
	return 0, nil
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn          func(context.Context, *models.Notification) error
	listByRecipientFn func(context.Context, uint, int, int) ([]models.Notification, error)
	countUnreadFn     func(context.Context, uint) (int64, error)
	markReadFn        func(context.Context, uint, uint) error
	markAllReadFn     func(context.Context, uint) error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	if s.createFn != nil {
		return s.createFn(ctx, n)
	}
	return nil
}
func (s *notificationRepoStub) ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.Notification, error) {
	if s.listByRecipientFn != nil {
		return s.listByRecipientFn(ctx, recipientID, limit, offset)
	}
	return nil, nil
}
func (s *notificationRepoStub) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	if s.countUnreadFn != nil {
		return s.countUnreadFn(ctx, recipientID)
	}
	return 0, nil
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, recipientID, id uint) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, recipientID, id)
	}
	return nil
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, recipientID uint) error {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, recipientID)
	}
	return nil
}

// sinkStub records emitted fanout events synchronously.
type sinkStub struct {
	mu     sync.Mutex
	events []fanout.Event
}

func (s *sinkStub) Emit(_ context.Context, event fanout.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *sinkStub) all() []fanout.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fanout.Event(nil), s.events...)
}

// assertAppErrorCode asserts that err carries the given AppError code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
