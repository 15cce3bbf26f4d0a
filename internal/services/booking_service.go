package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/saeid-a/CoachSync/internal/repository"
)

type bookingRequestCreator interface {
	CreateBookingRequest(ctx context.Context, input repository.CreateBookingRequestInput) (*models.BookingRequest, error)
}

type bookingRequestReader interface {
	ListByCoach(ctx context.Context, coachID string, limit int, offset int) ([]models.BookingRequest, int, error)
	ListByClient(ctx context.Context, clientID string) ([]models.BookingRequest, error)
}

type BookingService struct {
	store    bookingRequestCreator
	bookings bookingRequestReader
	profiles profileLookup
	notifier notificationCreator
	changes  realtime.Publisher
	events   events.Publisher
}

type CreateBookingRequestInput struct {
	CoachID           string  `json:"coach_id" validate:"required,uuid"`
	PackageID         *string `json:"package_id" validate:"omitempty,uuid"`
	Message           string  `json:"message" validate:"max=2000"`
	RequestedSessions *int    `json:"requested_sessions" validate:"omitempty,min=1,max=100"`
}

func NewBookingService(
	store bookingRequestCreator,
	bookings bookingRequestReader,
	profiles profileLookup,
	notifier notificationCreator,
	changes realtime.Publisher,
	publisher events.Publisher,
) *BookingService {
	if changes == nil {
		changes = realtime.NoopPublisher{}
	}
	return &BookingService{
		store:    store,
		bookings: bookings,
		profiles: profiles,
		notifier: notifier,
		changes:  changes,
		events:   publisher,
	}
}

// CreateBookingRequest records a pending request from clientID and lets the
// coach know about it.
func (s *BookingService) CreateBookingRequest(
	ctx context.Context,
	clientID string,
	input CreateBookingRequestInput,
) (*models.BookingRequest, error) {
	if !validIDs(clientID, input.CoachID) || clientID == input.CoachID {
		return nil, ErrInvalidInput
	}
	if input.PackageID != nil && !validID(*input.PackageID) {
		return nil, ErrInvalidInput
	}
	if input.RequestedSessions != nil && *input.RequestedSessions <= 0 {
		return nil, ErrInvalidInput
	}

	coaches, err := s.profiles.GetByIDs(ctx, []string{input.CoachID})
	if err != nil {
		return nil, err
	}
	if _, ok := coaches[input.CoachID]; !ok {
		return nil, ErrCoachNotFound
	}

	request, err := s.store.CreateBookingRequest(ctx, repository.CreateBookingRequestInput{
		ClientID:          clientID,
		CoachID:           input.CoachID,
		PackageID:         input.PackageID,
		Message:           strings.TrimSpace(input.Message),
		RequestedSessions: input.RequestedSessions,
	})
	if err != nil {
		return nil, err
	}
	publishInsert(ctx, s.changes, realtime.TableBookingRequests, request)

	data := map[string]any{
		models.DataClientID:         clientID,
		models.DataBookingRequestID: request.ID,
	}
	if request.PackageID != nil {
		data[models.DataPackageID] = *request.PackageID
	}

	clientName := lookupDisplayName(ctx, s.profiles, clientID, "A client")
	notifyBestEffort(ctx, s.notifier, repository.CreateNotificationInput{
		UserID:  input.CoachID,
		Type:    models.NotificationBookingRequest,
		Title:   "New Booking Request",
		Message: clientName + " wants to book " + describeRequest(request),
		Data:    data,
	})
	publishDomainEvent(ctx, s.events, events.RoutingBookingRequested, events.NewEnvelope(
		models.NotificationBookingRequest,
		clientID,
		data,
	))

	return request, nil
}

// ListForCoach returns incoming requests newest first with client profiles attached.
func (s *BookingService) ListForCoach(
	ctx context.Context,
	coachID string,
	page int,
	limit int,
) ([]models.BookingRequestDetail, int, error) {
	if !validID(coachID) || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	requests, total, err := s.bookings.ListByCoach(ctx, coachID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	clientIDs := make([]string, 0, len(requests))
	seen := make(map[string]struct{}, len(requests))
	for _, request := range requests {
		if _, ok := seen[request.ClientID]; ok {
			continue
		}
		seen[request.ClientID] = struct{}{}
		clientIDs = append(clientIDs, request.ClientID)
	}

	profiles := map[string]models.Profile{}
	if len(clientIDs) > 0 {
		profiles, err = s.profiles.GetByIDs(ctx, clientIDs)
		if err != nil {
			return nil, 0, err
		}
	}

	details := make([]models.BookingRequestDetail, 0, len(requests))
	for _, request := range requests {
		detail := models.BookingRequestDetail{BookingRequest: request}
		if profile, ok := profiles[request.ClientID]; ok {
			profileCopy := profile
			detail.ClientProfile = &profileCopy
		}
		details = append(details, detail)
	}
	return details, total, nil
}

func (s *BookingService) ListForClient(ctx context.Context, clientID string) ([]models.BookingRequest, error) {
	if !validID(clientID) {
		return nil, ErrInvalidInput
	}
	return s.bookings.ListByClient(ctx, clientID)
}

func describeRequest(request *models.BookingRequest) string {
	if request.RequestedSessions != nil {
		if *request.RequestedSessions == 1 {
			return "1 session"
		}
		return fmt.Sprintf("%d sessions", *request.RequestedSessions)
	}
	if request.PackageID != nil {
		return "a package"
	}
	return "a session"
}
