package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/service"
)

// Search handles GET /api/search?q=...&type=all|tweets|users|hashtags.
func (s *Server) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	searchType := c.Query("type", service.SearchTypeAll)
	page := parsePagination(c, 20)

	results, err := s.searchService.Search(c.Context(),
		query, searchType, currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, results)
}
