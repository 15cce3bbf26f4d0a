package services

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/saeid-a/CoachSync/internal/repository"
)

type bookingTxRunner interface {
	RunBookingTx(ctx context.Context, fn func(tx repository.BookingTx) error) error
}

type notificationReader interface {
	GetNotification(ctx context.Context, userID string, id string) (*models.Notification, error)
}

// BookingDecisionService resolves booking requests, either through the
// accept/reject affordances of a booking_request notification or directly by
// request id from the coach's booking list.
type BookingDecisionService struct {
	notifications notificationReader
	store         bookingTxRunner
	notifier      notificationCreator
	profiles      profileLookup
	changes       realtime.Publisher
	events        events.Publisher
}

func NewBookingDecisionService(
	notifications notificationReader,
	store bookingTxRunner,
	notifier notificationCreator,
	profiles profileLookup,
	changes realtime.Publisher,
	publisher events.Publisher,
) *BookingDecisionService {
	if changes == nil {
		changes = realtime.NoopPublisher{}
	}
	return &BookingDecisionService{
		notifications: notifications,
		store:         store,
		notifier:      notifier,
		profiles:      profiles,
		changes:       changes,
		events:        publisher,
	}
}

// bookingRef names the request a decision applies to. ClientID is only set
// when it was carried by a notification and must match the locked row.
type bookingRef struct {
	RequestID string
	ClientID  string
}

func (s *BookingDecisionService) Accept(
	ctx context.Context,
	coachID string,
	notificationID string,
) (*models.BookingDecision, error) {
	ref, err := s.refFromNotification(ctx, coachID, notificationID)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, coachID, ref, models.BookingStatusAccepted)
}

func (s *BookingDecisionService) Reject(
	ctx context.Context,
	coachID string,
	notificationID string,
) (*models.BookingDecision, error) {
	ref, err := s.refFromNotification(ctx, coachID, notificationID)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, coachID, ref, models.BookingStatusRejected)
}

// AcceptRequest accepts a booking request by its own id.
func (s *BookingDecisionService) AcceptRequest(
	ctx context.Context,
	coachID string,
	bookingRequestID string,
) (*models.BookingDecision, error) {
	if !validIDs(coachID, bookingRequestID) {
		return nil, ErrInvalidInput
	}
	return s.decide(ctx, coachID, bookingRef{RequestID: bookingRequestID}, models.BookingStatusAccepted)
}

// RejectRequest rejects a booking request by its own id.
func (s *BookingDecisionService) RejectRequest(
	ctx context.Context,
	coachID string,
	bookingRequestID string,
) (*models.BookingDecision, error) {
	if !validIDs(coachID, bookingRequestID) {
		return nil, ErrInvalidInput
	}
	return s.decide(ctx, coachID, bookingRef{RequestID: bookingRequestID}, models.BookingStatusRejected)
}

func (s *BookingDecisionService) refFromNotification(
	ctx context.Context,
	coachID string,
	notificationID string,
) (bookingRef, error) {
	notification, err := s.notifications.GetNotification(ctx, coachID, notificationID)
	if err != nil {
		return bookingRef{}, err
	}

	bookingRequestID, hasRequest := notification.DataString(models.DataBookingRequestID)
	clientID, hasClient := notification.DataString(models.DataClientID)
	if !hasRequest || !hasClient {
		return bookingRef{}, ErrMissingBookingReference
	}
	if !validIDs(bookingRequestID, clientID) {
		return bookingRef{}, ErrMissingBookingReference
	}
	return bookingRef{RequestID: bookingRequestID, ClientID: clientID}, nil
}

// decide applies the decision keyed by the booking request id. The status
// change, relationship upsert and the read flag on the coach's booking_request
// notifications commit together. Repeating the decision already recorded is a
// no-op that reports Replayed.
func (s *BookingDecisionService) decide(
	ctx context.Context,
	coachID string,
	ref bookingRef,
	nextStatus string,
) (*models.BookingDecision, error) {
	var (
		decision = &models.BookingDecision{}
		clientID string
		marked   []models.Notification
	)
	err := s.store.RunBookingTx(ctx, func(tx repository.BookingTx) error {
		request, err := tx.GetBookingRequestForUpdate(ctx, ref.RequestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if request.CoachID != coachID {
			return ErrForbidden
		}
		if ref.ClientID != "" && request.ClientID != ref.ClientID {
			return ErrInvalidInput
		}
		clientID = request.ClientID

		switch request.Status {
		case nextStatus:
			decision.Replayed = true
		case models.BookingStatusPending:
			request, err = tx.UpdateBookingStatusIfCurrent(ctx, request.ID, models.BookingStatusPending, nextStatus)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrInvalidStateTransition
				}
				return err
			}
		default:
			return ErrInvalidStateTransition
		}
		decision.Request = request

		if nextStatus == models.BookingStatusAccepted {
			relationship, err := tx.UpsertActiveRelationship(ctx, coachID, clientID)
			if err != nil {
				return err
			}
			decision.Relationship = relationship
		}

		marked, err = tx.MarkBookingNotificationsRead(ctx, coachID, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range marked {
		publishUpdate(ctx, s.changes, realtime.TableNotifications, marked[i])
	}
	if !decision.Replayed {
		s.notifyClient(ctx, coachID, clientID, ref.RequestID, nextStatus)
	}
	return decision, nil
}

func (s *BookingDecisionService) notifyClient(
	ctx context.Context,
	coachID string,
	clientID string,
	bookingRequestID string,
	status string,
) {
	coachName := s.displayName(ctx, coachID)
	data := map[string]any{
		models.DataCoachID:          coachID,
		models.DataBookingRequestID: bookingRequestID,
	}

	input := repository.CreateNotificationInput{
		UserID: clientID,
		Data:   data,
	}
	routingKey := events.RoutingBookingRejected
	if status == models.BookingStatusAccepted {
		input.Type = models.NotificationBookingAccepted
		input.Title = "Booking Accepted!"
		input.Message = coachName + " has accepted your booking request. You can now start training!"
		routingKey = events.RoutingBookingAccepted
	} else {
		input.Type = models.NotificationBookingRejected
		input.Title = "Booking Update"
		input.Message = coachName + " was unable to accept your booking request at this time."
	}

	notifyBestEffort(ctx, s.notifier, input)
	publishDomainEvent(ctx, s.events, routingKey, events.NewEnvelope(input.Type, coachID, map[string]any{
		models.DataBookingRequestID: bookingRequestID,
		models.DataClientID:         clientID,
		models.DataCoachID:          coachID,
	}))
}

func (s *BookingDecisionService) displayName(ctx context.Context, userID string) string {
	return lookupDisplayName(ctx, s.profiles, userID, "Your coach")
}

func lookupDisplayName(ctx context.Context, profiles profileLookup, userID string, fallback string) string {
	if profiles == nil {
		return fallback
	}
	found, err := profiles.GetByIDs(ctx, []string{userID})
	if err != nil {
		log.Printf("lookup display name for %s: %v", userID, err)
		return fallback
	}
	profile, ok := found[userID]
	if !ok || profile.DisplayName() == models.UnknownDisplayName {
		return fallback
	}
	return profile.DisplayName()
}

func publishDomainEvent(ctx context.Context, publisher events.Publisher, routingKey string, envelope events.Envelope) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("publish %s event: %v", routingKey, err)
	}
}
