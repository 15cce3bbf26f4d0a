package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachSync/internal/models"
)

type notificationApplicationService interface {
	LoadNotifications(ctx context.Context, userID string) (*models.NotificationFeed, error)
	MarkAsRead(ctx context.Context, userID string, id string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string, id string) error
}

type bookingDecider interface {
	Accept(ctx context.Context, coachID string, notificationID string) (*models.BookingDecision, error)
	Reject(ctx context.Context, coachID string, notificationID string) (*models.BookingDecision, error)
}

type NotificationHandler struct {
	notifications notificationApplicationService
	decisions     bookingDecider
}

func NewNotificationHandler(notifications notificationApplicationService, decisions bookingDecider) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		decisions:     decisions,
	}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	feed, err := h.notifications.LoadNotifications(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err, "Notification not found")
	}

	return c.JSON(feed)
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification id")
	}

	if err := h.notifications.MarkAsRead(c.Context(), userID, id); err != nil {
		return mapServiceError(c, err, "Notification not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.notifications.MarkAllAsRead(c.Context(), userID); err != nil {
		return mapServiceError(c, err, "Notification not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification id")
	}

	if err := h.notifications.Delete(c.Context(), userID, id); err != nil {
		return mapServiceError(c, err, "Notification not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) AcceptBooking(c *fiber.Ctx) error {
	return h.decide(c, h.decisions.Accept)
}

func (h *NotificationHandler) RejectBooking(c *fiber.Ctx) error {
	return h.decide(c, h.decisions.Reject)
}

func (h *NotificationHandler) decide(
	c *fiber.Ctx,
	decide func(ctx context.Context, coachID string, notificationID string) (*models.BookingDecision, error),
) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification id")
	}

	decision, err := decide(c.Context(), userID, id)
	if err != nil {
		return mapServiceError(c, err, "Notification not found")
	}

	return c.JSON(decision)
}
