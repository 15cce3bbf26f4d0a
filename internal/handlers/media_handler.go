package handlers

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/services"
	"github.com/saeid-a/CoachSync/pkg/utils"
)

const maxMediaSizeBytes = 50 * 1024 * 1024

type mediaApplicationService interface {
	UploadMedia(ctx context.Context, clientID string, input services.UploadMediaInput) (*models.ClientMedia, error)
}

type MediaHandler struct {
	service mediaApplicationService
}

type uploadMediaForm struct {
	CoachID     string `form:"coach_id" validate:"required,uuid"`
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
}

func NewMediaHandler(service mediaApplicationService) *MediaHandler {
	return &MediaHandler{service: service}
}

// UploadMedia accepts a client's video or image for their coach to review.
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	if currentRole(c) != utils.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var form uploadMediaForm
	if err := bindBody(c, &form); err != nil {
		return badRequest(c, validationMessage(err))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if fileHeader.Size <= 0 {
		return badRequest(c, "file is empty")
	}
	if fileHeader.Size > maxMediaSizeBytes {
		return badRequest(c, "file exceeds 50MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxMediaSizeBytes+1))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read file"})
	}

	media, err := h.service.UploadMedia(c.Context(), userID, services.UploadMediaInput{
		CoachID:     form.CoachID,
		Title:       form.Title,
		Description: form.Description,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return mapServiceError(c, err, "Media not found")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"media": media})
}
