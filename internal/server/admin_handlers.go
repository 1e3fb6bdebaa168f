package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// GetFeatureFlags handles GET /api/admin/feature-flags: the raw flag
// configuration plus how it evaluates for the requesting admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"flags":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}

// DeactivateUser handles POST /api/admin/users/:id/deactivate. The account's
// tweets and follow edges stay; only login and token checks start failing.
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	return s.setUserActive(c, false, "user deactivated")
}

// ActivateUser handles POST /api/admin/users/:id/activate.
func (s *Server) ActivateUser(c *fiber.Ctx) error {
	return s.setUserActive(c, true, "user activated")
}

func (s *Server) setUserActive(c *fiber.Ctx, active bool, message string) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if !active && targetID == currentUserID(c) {
		return models.RespondWithAppError(c,
			models.NewInvalidOperationError("cannot deactivate your own account"))
	}

	if err := s.userService.SetActive(c.Context(), targetID, active); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"message": message,
	})
}
