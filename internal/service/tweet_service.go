package service

import (
	"context"
	"errors"
	"log"

	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/observability"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
	"github.com/gustavohdab/rettiwt-backend/internal/validation"
)

// MaxMediaPerTweet caps the attachment list.
const MaxMediaPerTweet = 4

// TweetService is the engagement engine: it owns every state transition on
// tweets (create, delete, like, retweet, bookmark) and emits fan-out events
// after the primary mutation commits.
type TweetService struct {
	tweets  repository.TweetRepository
	users   repository.UserRepository
	sink    fanout.Sink
	isAdmin func(ctx context.Context, userID uint) (bool, error)
}

// NewTweetService creates the engagement engine. sink may be nil in tests,
// turning event emission into a no-op.
func NewTweetService(
	tweets repository.TweetRepository,
	users repository.UserRepository,
	sink fanout.Sink,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *TweetService {
	return &TweetService{tweets: tweets, users: users, sink: sink, isAdmin: isAdmin}
}

// MediaInput is one attachment in a create-tweet command.
type MediaInput struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// CreateTweetInput is the typed command behind POST /tweets.
type CreateTweetInput struct {
	AuthorID      uint
	Content       string
	Media         []MediaInput
	InReplyToID   *uint
	QuotedTweetID *uint
}

// CreateTweet validates and stores a tweet, derives its hashtags and
// mentions, bumps the parent or quoted counters, and emits the created
// event for notification fan-out and trend refresh.
//
// References to nonexistent or deleted tweets are stored as null rather
// than rejected: the referenced tweet may have been deleted between the
// client reading it and posting, and failing the whole post for that race
// would be worse than dropping the link.
func (s *TweetService) CreateTweet(ctx context.Context, in CreateTweetInput) (*models.Tweet, error) {
	if err := validation.ValidateTweetContent(in.Content); err != nil {
		return nil, models.NewFieldValidationError("content", err.Error())
	}
	if err := validateMedia(in.Media); err != nil {
		return nil, err
	}

	var parentAuthorID uint
	inReplyToID := in.InReplyToID
	if inReplyToID != nil {
		parent, err := s.resolveReference(ctx, *inReplyToID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			inReplyToID = nil
		} else {
			parentAuthorID = parent.AuthorID
		}
	}

	var quotedAuthorID uint
	quotedTweetID := in.QuotedTweetID
	if quotedTweetID != nil {
		quoted, err := s.resolveReference(ctx, *quotedTweetID)
		if err != nil {
			return nil, err
		}
		if quoted == nil {
			quotedTweetID = nil
		} else {
			quotedAuthorID = quoted.AuthorID
		}
	}

	hashtags, mentionIDs, err := DeriveHashtagsAndMentions(ctx, in.Content, s.resolveUsername)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{
		Content:       in.Content,
		AuthorID:      in.AuthorID,
		InReplyToID:   inReplyToID,
		QuotedTweetID: quotedTweetID,
		IsPublic:      true,
	}
	for i, tag := range hashtags {
		tweet.Hashtags = append(tweet.Hashtags, models.TweetHashtag{Tag: tag, Position: i})
	}
	for _, userID := range mentionIDs {
		tweet.Mentions = append(tweet.Mentions, models.TweetMention{UserID: userID})
	}
	for i, m := range in.Media {
		tweet.Media = append(tweet.Media, models.TweetMedia{
			Position: i,
			Type:     m.Type,
			URL:      m.URL,
			AltText:  m.AltText,
		})
	}

	if err := s.tweets.Create(ctx, tweet); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("create", "ok").Inc()

	created, err := s.tweets.GetByID(ctx, tweet.ID, in.AuthorID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, fanout.TweetCreated{
		Tweet:            created,
		ParentAuthorID:   parentAuthorID,
		QuotedAuthorID:   quotedAuthorID,
		MentionedUserIDs: mentionRecipients(mentionIDs, parentAuthorID, quotedAuthorID),
	})

	return created, nil
}

// mentionRecipients drops the reply and quote recipients from the mention
// list so nobody gets two notifications for the same tweet.
func mentionRecipients(mentionIDs []uint, parentAuthorID, quotedAuthorID uint) []uint {
	out := mentionIDs[:0:0]
	for _, id := range mentionIDs {
		if id == parentAuthorID || id == quotedAuthorID {
			continue
		}
		out = append(out, id)
	}
	return out
}

// DeleteTweet soft-deletes. Only the author (or an admin) may delete;
// replies, quotes, and likes referencing the tweet are left in place.
func (s *TweetService) DeleteTweet(ctx context.Context, actorID, tweetID uint) error {
	tweet, err := s.tweets.GetByID(ctx, tweetID, 0)
	if err != nil {
		return err
	}

	if tweet.AuthorID != actorID {
		admin := false
		if s.isAdmin != nil {
			admin, err = s.isAdmin(ctx, actorID)
			if err != nil {
				return err
			}
		}
		if !admin {
			return models.NewAuthorizationError("you can only delete your own tweets")
		}
	}

	if err := s.tweets.Delete(ctx, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	observability.EngagementOpsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Like records actorID liking tweetID and notifies the author.
func (s *TweetService) Like(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if _, err := s.tweets.GetByID(ctx, tweetID, actorID); err != nil {
		return nil, err
	}

	if err := s.tweets.Like(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("like", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("like", "ok").Inc()

	tweet, err := s.tweets.GetByID(ctx, tweetID, actorID)
	if err != nil {
		return nil, err
	}

	if actor := s.loadActor(ctx, actorID); actor != nil {
		s.emit(ctx, fanout.TweetLiked{Actor: actor, Tweet: tweet})
	}
	return tweet, nil
}

// Unlike reverses a like. No notification is emitted for undo operations.
func (s *TweetService) Unlike(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if err := s.tweets.Unlike(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("unlike", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("unlike", "ok").Inc()
	return s.tweets.GetByID(ctx, tweetID, actorID)
}

// Retweet records actorID retweeting tweetID and notifies the author.
func (s *TweetService) Retweet(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if _, err := s.tweets.GetByID(ctx, tweetID, actorID); err != nil {
		return nil, err
	}

	if err := s.tweets.Retweet(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("retweet", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("retweet", "ok").Inc()

	tweet, err := s.tweets.GetByID(ctx, tweetID, actorID)
	if err != nil {
		return nil, err
	}

	if actor := s.loadActor(ctx, actorID); actor != nil {
		s.emit(ctx, fanout.TweetRetweeted{Actor: actor, Tweet: tweet})
	}
	return tweet, nil
}

// Unretweet reverses a retweet.
func (s *TweetService) Unretweet(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if err := s.tweets.Unretweet(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("unretweet", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("unretweet", "ok").Inc()
	return s.tweets.GetByID(ctx, tweetID, actorID)
}

// Bookmark saves the tweet to the actor's bookmark set. Bookmarks are
// private: no counter moves on the tweet and nobody is notified.
func (s *TweetService) Bookmark(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if _, err := s.tweets.GetByID(ctx, tweetID, actorID); err != nil {
		return nil, err
	}

	if err := s.tweets.AddBookmark(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("bookmark", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("bookmark", "ok").Inc()
	return s.tweets.GetByID(ctx, tweetID, actorID)
}

// Unbookmark removes the tweet from the actor's bookmark set.
func (s *TweetService) Unbookmark(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error) {
	if err := s.tweets.RemoveBookmark(ctx, actorID, tweetID); err != nil {
		observability.EngagementOpsTotal.WithLabelValues("unbookmark", outcomeFor(err)).Inc()
		return nil, err
	}
	observability.EngagementOpsTotal.WithLabelValues("unbookmark", "ok").Inc()
	return s.tweets.GetByID(ctx, tweetID, actorID)
}

// resolveReference loads a referenced tweet, mapping NotFound to nil so the
// caller can store a null reference.
func (s *TweetService) resolveReference(ctx context.Context, id uint) (*models.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, id, 0)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return tweet, nil
}

// resolveUsername adapts the user repository for mention resolution.
// Unknown usernames return 0 without error so they are silently dropped.
func (s *TweetService) resolveUsername(ctx context.Context, username string) (uint, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, nil
	}
	return user.ID, nil
}

// loadActor fetches the acting user for event payloads. Failures only cost
// the notification, never the engagement itself.
func (s *TweetService) loadActor(ctx context.Context, actorID uint) *models.User {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		log.Printf("engagement: load actor %d for event: %v", actorID, err)
		return nil
	}
	return actor
}

func (s *TweetService) emit(ctx context.Context, event fanout.Event) {
	if s.sink != nil {
		s.sink.Emit(ctx, event)
	}
}

func validateMedia(media []MediaInput) error {
	if len(media) > MaxMediaPerTweet {
		return models.NewFieldValidationError("media", "a tweet can carry at most 4 attachments")
	}
	for _, m := range media {
		switch m.Type {
		case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeGIF:
		default:
			return models.NewFieldValidationError("media", "media type must be image, video, or gif")
		}
		if m.URL == "" {
			return models.NewFieldValidationError("media", "media url is required")
		}
	}
	return nil
}

// outcomeFor labels an engagement failure for metrics.
func outcomeFor(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeAlreadyDone:
			return "already_done"
		case models.CodeNotDone:
			return "not_done"
		case models.CodeNotFound:
			return "not_found"
		}
	}
	return "error"
}
