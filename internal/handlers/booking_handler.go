package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/services"
	"github.com/saeid-a/CoachSync/pkg/utils"
)

type bookingApplicationService interface {
	CreateBookingRequest(ctx context.Context, clientID string, input services.CreateBookingRequestInput) (*models.BookingRequest, error)
	ListForCoach(ctx context.Context, coachID string, page int, limit int) ([]models.BookingRequestDetail, int, error)
	ListForClient(ctx context.Context, clientID string) ([]models.BookingRequest, error)
}

type bookingRequestDecider interface {
	AcceptRequest(ctx context.Context, coachID string, bookingRequestID string) (*models.BookingDecision, error)
	RejectRequest(ctx context.Context, coachID string, bookingRequestID string) (*models.BookingDecision, error)
}

type BookingHandler struct {
	service   bookingApplicationService
	decisions bookingRequestDecider
}

func NewBookingHandler(service bookingApplicationService, decisions bookingRequestDecider) *BookingHandler {
	return &BookingHandler{service: service, decisions: decisions}
}

func (h *BookingHandler) CreateBookingRequest(c *fiber.Ctx) error {
	if currentRole(c) != utils.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req services.CreateBookingRequestInput
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	request, err := h.service.CreateBookingRequest(c.Context(), userID, req)
	if err != nil {
		return mapServiceError(c, err, "Booking request not found")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking_request": request})
}

// ListBookingRequests returns incoming requests for coaches and the caller's
// own requests for clients.
func (h *BookingHandler) ListBookingRequests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	switch currentRole(c) {
	case utils.RoleCoach:
		page, limit := pageParams(c.Query("page"), c.Query("limit"))
		requests, total, err := h.service.ListForCoach(c.Context(), userID, page, limit)
		if err != nil {
			return mapServiceError(c, err, "Booking request not found")
		}
		return c.JSON(fiber.Map{
			"booking_requests": requests,
			"pagination":       buildPaginationMeta(page, limit, total),
		})
	case utils.RoleClient:
		requests, err := h.service.ListForClient(c.Context(), userID)
		if err != nil {
			return mapServiceError(c, err, "Booking request not found")
		}
		return c.JSON(fiber.Map{"booking_requests": requests})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
}

func (h *BookingHandler) AcceptBookingRequest(c *fiber.Ctx) error {
	return h.decide(c, h.decisions.AcceptRequest)
}

func (h *BookingHandler) RejectBookingRequest(c *fiber.Ctx) error {
	return h.decide(c, h.decisions.RejectRequest)
}

func (h *BookingHandler) decide(
	c *fiber.Ctx,
	decide func(ctx context.Context, coachID string, bookingRequestID string) (*models.BookingDecision, error),
) error {
	if currentRole(c) != utils.RoleCoach {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid booking request id")
	}

	decision, err := decide(c.Context(), userID, id)
	if err != nil {
		return mapServiceError(c, err, "Booking request not found")
	}

	return c.JSON(decision)
}
