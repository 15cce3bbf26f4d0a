package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/pkg/utils"
)

type SessionHandler struct {
	service sessionApplicationService
}

type sessionApplicationService interface {
	CompleteSession(ctx context.Context, coachID string, sessionID string) (*models.Session, error)
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	if currentRole(c) != utils.RoleCoach {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	session, err := h.service.CompleteSession(c.Context(), userID, sessionID)
	if err != nil {
		return mapServiceError(c, err, "Session not found")
	}

	return c.JSON(fiber.Map{"session": session})
}
