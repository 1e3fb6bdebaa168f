package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/service"
)

// GetMyProfile handles GET /api/users/profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, user)
}

// UpdateMyProfile handles PATCH /api/users/profile. Absent fields keep their
// value; present empty strings clear it.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name     *string `json:"name"`
		Bio      *string `json:"bio"`
		Location *string `json:"location"`
		Website  *string `json:"website"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), currentUserID(c), service.UpdateProfileInput{
		Name:     req.Name,
		Bio:      req.Bio,
		Location: req.Location,
		Website:  req.Website,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, user)
}

// GetUserProfile handles GET /api/users/:username.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.userService.Profile(c.Context(), c.Params("username"), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, user)
}

// FollowUser handles POST /api/users/:username/follow. Returns the target
// profile with fresh counters so the client can render without a refetch.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	target, err := s.userService.Follow(c.Context(), currentUserID(c), c.Params("username"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, target)
}

// UnfollowUser handles DELETE /api/users/:username/follow.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	target, err := s.userService.Unfollow(c.Context(), currentUserID(c), c.Params("username"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, target)
}

// GetFollowers handles GET /api/users/:username/followers.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	followers, err := s.userService.Followers(c.Context(),
		c.Params("username"), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, followers)
}

// GetFollowing handles GET /api/users/:username/following.
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	following, err := s.userService.Following(c.Context(),
		c.Params("username"), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, following)
}

// GetSuggestions handles GET /api/users/suggestions.
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	page := parsePagination(c, 3)

	suggestions, err := s.userService.Suggestions(c.Context(), currentUserID(c), page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, suggestions)
}

// GetBookmarks handles GET /api/users/bookmarks.
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	tweets, err := s.timelineService.Bookmarks(c.Context(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, tweets)
}
