package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/service"
)

// CreateTweet handles POST /api/tweets. Replies and quotes are plain tweets
// carrying a reference to their target.
func (s *Server) CreateTweet(c *fiber.Ctx) error {
	var req struct {
		Content       string               `json:"content"`
		Media         []service.MediaInput `json:"media"`
		InReplyToID   *uint                `json:"in_reply_to_id"`
		QuotedTweetID *uint                `json:"quoted_tweet_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tweet, err := s.tweetService.CreateTweet(c.Context(), service.CreateTweetInput{
		AuthorID:      currentUserID(c),
		Content:       req.Content,
		Media:         req.Media,
		InReplyToID:   req.InReplyToID,
		QuotedTweetID: req.QuotedTweetID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, tweet)
}

// GetTimeline handles GET /api/tweets/timeline.
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	includeReplies := c.QueryBool("include_replies", false)

	tweets, err := s.timelineService.HomeTimeline(c.Context(),
		currentUserID(c), includeReplies, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}

// GetTweet handles GET /api/tweets/:id.
func (s *Server) GetTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.timelineService.GetTweet(c.Context(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweet)
}

// GetThread handles GET /api/tweets/:id/thread.
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	thread, err := s.timelineService.GetThread(c.Context(), id, currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, thread)
}

// DeleteTweet handles DELETE /api/tweets/:id.
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tweetService.DeleteTweet(c.Context(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"message": "tweet deleted",
	})
}

// GetUserTweets handles GET /api/tweets/user/:username.
func (s *Server) GetUserTweets(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	tweets, err := s.timelineService.UserTweets(c.Context(),
		c.Params("username"), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}

// GetUserReplies handles GET /api/tweets/user/:username/replies.
func (s *Server) GetUserReplies(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	tweets, err := s.timelineService.UserReplies(c.Context(),
		c.Params("username"), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}

// GetUserLikes handles GET /api/tweets/user/:username/likes.
func (s *Server) GetUserLikes(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	tweets, err := s.timelineService.UserLikes(c.Context(),
		c.Params("username"), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}

// LikeTweet handles POST /api/tweets/:id/like.
func (s *Server) LikeTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Like)
}

// UnlikeTweet handles DELETE /api/tweets/:id/like.
func (s *Server) UnlikeTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Unlike)
}

// RetweetTweet handles POST /api/tweets/:id/retweet.
func (s *Server) RetweetTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Retweet)
}

// UnretweetTweet handles DELETE /api/tweets/:id/retweet.
func (s *Server) UnretweetTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Unretweet)
}

// BookmarkTweet handles POST /api/tweets/:id/bookmark.
func (s *Server) BookmarkTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Bookmark)
}

// UnbookmarkTweet handles DELETE /api/tweets/:id/bookmark.
func (s *Server) UnbookmarkTweet(c *fiber.Ctx) error {
	return s.engage(c, s.tweetService.Unbookmark)
}

// engage runs one engagement toggle and returns the tweet with fresh
// counters and viewer annotations. All six toggles share this shape.
func (s *Server) engage(c *fiber.Ctx, op func(ctx context.Context, actorID, tweetID uint) (*models.Tweet, error)) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := op(c.Context(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweet)
}
