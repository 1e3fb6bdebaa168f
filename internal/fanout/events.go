// Package fanout turns committed engagement actions into persisted
// notifications and realtime pushes. Events are emitted fire-and-forget after
// the primary mutation commits; delivery failures are logged and swallowed,
// never surfaced to the request that triggered them.
package fanout

import "github.com/gustavohdab/rettiwt-backend/internal/models"

// Event is a social action handed to the Dispatcher after it committed.
type Event interface {
	kind() string
}

// TweetCreated fires after a tweet (top-level, reply or quote) is stored.
// ParentAuthorID and QuotedAuthorID are zero when the tweet is not a reply
// or quote, or when the referenced tweet vanished during creation.
type TweetCreated struct {
	Tweet            *models.Tweet
	ParentAuthorID   uint
	QuotedAuthorID   uint
	MentionedUserIDs []uint
}

func (TweetCreated) kind() string { return "tweet_created" }

// TweetLiked fires after a like is recorded.
type TweetLiked struct {
	Actor *models.User
	Tweet *models.Tweet
}

func (TweetLiked) kind() string { return "tweet_liked" }

// TweetRetweeted fires after a retweet is recorded.
type TweetRetweeted struct {
	Actor *models.User
	Tweet *models.Tweet
}

func (TweetRetweeted) kind() string { return "tweet_retweeted" }

// Followed fires after a follow edge is created.
type Followed struct {
	Actor  *models.User
	Target *models.User
}

func (Followed) kind() string { return "followed" }

// Unfollowed fires after a follow edge is removed.
type Unfollowed struct {
	Actor  *models.User
	Target *models.User
}

func (Unfollowed) kind() string { return "unfollowed" }
