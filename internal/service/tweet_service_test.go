package service

import (
	"context"
	"strings"
	"testing"

	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTweetService(tweets *tweetRepoStub, users *userRepoStub, sink *sinkStub) *TweetService {
	var s fanout.Sink
	if sink != nil {
		s = sink
	}
	return NewTweetService(tweets, users, s, nil)
}

func TestCreateTweetStoresDerivedEntities(t *testing.T) {
	var stored *models.Tweet
	tweets := &tweetRepoStub{
		createFn: func(_ context.Context, tw *models.Tweet) error {
			tw.ID = 42
			stored = tw
			return nil
		},
	}
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			if username == "alice" {
				return &models.User{ID: 7, Username: "alice"}, nil
			}
			return nil, nil
		},
	}
	sink := &sinkStub{}
	svc := newTweetService(tweets, users, sink)

	created, err := svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID: 1,
		Content:  "shipping #Go with @alice and @ghost #go",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, uint(42), created.ID)

	require.NotNil(t, stored)
	require.Len(t, stored.Hashtags, 1)
	assert.Equal(t, "go", stored.Hashtags[0].Tag)
	require.Len(t, stored.Mentions, 1)
	assert.Equal(t, uint(7), stored.Mentions[0].UserID)

	events := sink.all()
	require.Len(t, events, 1)
	createdEvent, ok := events[0].(fanout.TweetCreated)
	require.True(t, ok)
	assert.Equal(t, []uint{7}, createdEvent.MentionedUserIDs)
}

func TestCreateTweetRejectsBadContent(t *testing.T) {
	svc := newTweetService(&tweetRepoStub{}, &userRepoStub{}, nil)

	_, err := svc.CreateTweet(context.Background(), CreateTweetInput{AuthorID: 1, Content: ""})
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID: 1,
		Content:  strings.Repeat("a", 281),
	})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestCreateTweetContentLimitIsRunes(t *testing.T) {
	svc := newTweetService(&tweetRepoStub{}, &userRepoStub{}, nil)

	// 280 multibyte runes are fine even though the byte count is larger.
	_, err := svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID: 1,
		Content:  strings.Repeat("é", 280),
	})
	assert.NoError(t, err)
}

func TestCreateTweetDropsVanishedReference(t *testing.T) {
	parentID := uint(99)
	var stored *models.Tweet
	tweets := &tweetRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Tweet, error) {
			if id == parentID {
				return nil, models.NewNotFoundError("tweet", id)
			}
			return &models.Tweet{ID: id}, nil
		},
		createFn: func(_ context.Context, tw *models.Tweet) error {
			tw.ID = 5
			stored = tw
			return nil
		},
	}
	sink := &sinkStub{}
	svc := newTweetService(tweets, &userRepoStub{}, sink)

	_, err := svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID:    1,
		Content:     "replying into the void",
		InReplyToID: &parentID,
	})
	require.NoError(t, err)

	// The dangling reference is stored as null, not rejected.
	require.NotNil(t, stored)
	assert.Nil(t, stored.InReplyToID)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Zero(t, events[0].(fanout.TweetCreated).ParentAuthorID)
}

func TestCreateTweetReplyNotifiesParentAuthorOnce(t *testing.T) {
	parentID := uint(10)
	tweets := &tweetRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Tweet, error) {
			if id == parentID {
				return &models.Tweet{ID: id, AuthorID: 7}, nil
			}
			return &models.Tweet{ID: id, AuthorID: 1}, nil
		},
	}
	users := &userRepoStub{
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return &models.User{ID: 7, Username: username}, nil
		},
	}
	sink := &sinkStub{}
	svc := newTweetService(tweets, users, sink)

	// The mention resolves to the parent's author; the reply notification
	// already covers them, so the mention list must exclude them.
	_, err := svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID:    1,
		Content:     "@parentauthor nice one",
		InReplyToID: &parentID,
	})
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	created := events[0].(fanout.TweetCreated)
	assert.Equal(t, uint(7), created.ParentAuthorID)
	assert.Empty(t, created.MentionedUserIDs)
}

func TestCreateTweetMediaValidation(t *testing.T) {
	svc := newTweetService(&tweetRepoStub{}, &userRepoStub{}, nil)

	media := make([]MediaInput, MaxMediaPerTweet+1)
	for i := range media {
		media[i] = MediaInput{Type: models.MediaTypeImage, URL: "/media/x.webp"}
	}
	_, err := svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID: 1, Content: "too many", Media: media,
	})
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.CreateTweet(context.Background(), CreateTweetInput{
		AuthorID: 1, Content: "bad type",
		Media: []MediaInput{{Type: "hologram", URL: "/media/x.webp"}},
	})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestDeleteTweetAuthorization(t *testing.T) {
	tweets := &tweetRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Tweet, error) {
			return &models.Tweet{ID: id, AuthorID: 1}, nil
		},
	}

	svc := NewTweetService(tweets, &userRepoStub{}, nil, nil)
	err := svc.DeleteTweet(context.Background(), 2, 10)
	assertAppErrorCode(t, err, models.CodeAuthorization)

	// The author may delete.
	assert.NoError(t, svc.DeleteTweet(context.Background(), 1, 10))

	// An admin may delete someone else's tweet.
	admin := NewTweetService(tweets, &userRepoStub{}, nil,
		func(context.Context, uint) (bool, error) { return true, nil })
	assert.NoError(t, admin.DeleteTweet(context.Background(), 2, 10))
}

func TestLikeEmitsEvent(t *testing.T) {
	sink := &sinkStub{}
	users := &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "actor"}, nil
		},
	}
	svc := newTweetService(&tweetRepoStub{}, users, sink)

	tweet, err := svc.Like(context.Background(), 3, 10)
	require.NoError(t, err)
	require.NotNil(t, tweet)

	events := sink.all()
	require.Len(t, events, 1)
	liked, ok := events[0].(fanout.TweetLiked)
	require.True(t, ok)
	assert.Equal(t, uint(3), liked.Actor.ID)
}

func TestLikeTwiceReportsAlreadyDone(t *testing.T) {
	tweets := &tweetRepoStub{
		likeFn: func(context.Context, uint, uint) error {
			return models.NewAlreadyDoneError("tweet already liked")
		},
	}
	sink := &sinkStub{}
	svc := newTweetService(tweets, &userRepoStub{}, sink)

	_, err := svc.Like(context.Background(), 3, 10)
	assertAppErrorCode(t, err, models.CodeAlreadyDone)
	assert.Empty(t, sink.all())
}

func TestUnlikeWithoutLikeReportsNotDone(t *testing.T) {
	tweets := &tweetRepoStub{
		unlikeFn: func(context.Context, uint, uint) error {
			return models.NewNotDoneError("tweet was not liked")
		},
	}
	svc := newTweetService(tweets, &userRepoStub{}, nil)

	_, err := svc.Unlike(context.Background(), 3, 10)
	assertAppErrorCode(t, err, models.CodeNotDone)
}

func TestLikeMissingTweet(t *testing.T) {
	tweets := &tweetRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Tweet, error) {
			return nil, models.NewNotFoundError("tweet", id)
		},
	}
	svc := newTweetService(tweets, &userRepoStub{}, nil)

	_, err := svc.Like(context.Background(), 3, 404)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestRetweetEmitsEvent(t *testing.T) {
	sink := &sinkStub{}
	svc := newTweetService(&tweetRepoStub{}, &userRepoStub{}, sink)

	_, err := svc.Retweet(context.Background(), 3, 10)
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	_, ok := events[0].(fanout.TweetRetweeted)
	assert.True(t, ok)
}

func TestBookmarkIsSilent(t *testing.T) {
	sink := &sinkStub{}
	svc := newTweetService(&tweetRepoStub{}, &userRepoStub{}, sink)

	_, err := svc.Bookmark(context.Background(), 3, 10)
	require.NoError(t, err)
	_, err = svc.Unbookmark(context.Background(), 3, 10)
	require.NoError(t, err)

	// Bookmarks are private: nothing is fanned out.
	assert.Empty(t, sink.all())
}
