package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// GetTrendingHashtags handles GET /api/trends/hashtags.
func (s *Server) GetTrendingHashtags(c *fiber.Ctx) error {
	page := parsePagination(c, 10)

	trends, err := s.trendService.TrendingHashtags(c.Context(), page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, trends)
}

// GetPopularTweets handles GET /api/trends/popular.
func (s *Server) GetPopularTweets(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	tweets, err := s.trendService.PopularTweets(c.Context(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}

// GetWhoToFollow handles GET /api/trends/who-to-follow.
func (s *Server) GetWhoToFollow(c *fiber.Ctx) error {
	page := parsePagination(c, 3)

	suggestions, err := s.userService.Suggestions(c.Context(), currentUserID(c), page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, suggestions)
}

// GetTweetsByHashtag handles GET /api/trends/hashtag/:hashtag.
func (s *Server) GetTweetsByHashtag(c *fiber.Ctx) error {
	tag := c.Params("hashtag")
	if tag == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("hashtag is required"))
	}
	page := parsePagination(c, 20)

	tweets, err := s.trendService.TweetsByHashtag(c.Context(), tag, currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}
