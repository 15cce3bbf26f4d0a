package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachSync/internal/models"
)

type conversationApplicationService interface {
	LoadConversations(ctx context.Context, selfID string) ([]models.Conversation, error)
	LoadThread(ctx context.Context, selfID string, partnerID string) ([]models.Message, error)
	SendMessage(ctx context.Context, selfID string, partnerID string, content string) (*models.Message, error)
	ListContacts(ctx context.Context, selfID string) ([]models.Contact, error)
}

type ConversationHandler struct {
	service conversationApplicationService
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"max=4000"`
}

func NewConversationHandler(service conversationApplicationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	conversations, err := h.service.LoadConversations(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err, "Conversation not found")
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

// GetThread returns the transcript with a partner and marks it read.
func (h *ConversationHandler) GetThread(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return badRequest(c, "Invalid partner id")
	}

	messages, err := h.service.LoadThread(c.Context(), userID, partnerID)
	if err != nil {
		return mapServiceError(c, err, "Conversation not found")
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return badRequest(c, "Invalid partner id")
	}

	var req sendMessageRequest
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	message, err := h.service.SendMessage(c.Context(), userID, partnerID, req.Content)
	if err != nil {
		return mapServiceError(c, err, "Conversation not found")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ConversationHandler) ListContacts(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	contacts, err := h.service.ListContacts(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err, "Contact not found")
	}

	return c.JSON(fiber.Map{"contacts": contacts})
}
