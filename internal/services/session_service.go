package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/repository"
)

type sessionStore interface {
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateStatusIfCurrent(ctx context.Context, sessionID string, currentStatus string, nextStatus string) (*models.Session, error)
}

type SessionService struct {
	sessions sessionStore
	profiles profileLookup
	notifier notificationCreator
	events   events.Publisher
}

func NewSessionService(
	sessions sessionStore,
	profiles profileLookup,
	notifier notificationCreator,
	publisher events.Publisher,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		profiles: profiles,
		notifier: notifier,
		events:   publisher,
	}
}

// CompleteSession marks an upcoming session of coachID as completed and tells
// the client when the session is linked to a client account.
func (s *SessionService) CompleteSession(
	ctx context.Context,
	coachID string,
	sessionID string,
) (*models.Session, error) {
	if !validIDs(coachID, sessionID) {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.CoachID != coachID {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionStatusUpcoming {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.sessions.UpdateStatusIfCurrent(ctx, sessionID, models.SessionStatusUpcoming, models.SessionStatusCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if updated.UserClientID != nil && *updated.UserClientID != "" {
		coachName := lookupDisplayName(ctx, s.profiles, coachID, "your coach")
		data := map[string]any{models.DataSessionID: updated.ID}
		notifyBestEffort(ctx, s.notifier, repository.CreateNotificationInput{
			UserID:  *updated.UserClientID,
			Type:    models.NotificationSessionCompleted,
			Title:   "Session Completed",
			Message: fmt.Sprintf("Your %s session with %s has been marked as complete.", updated.SessionType, coachName),
			Data:    data,
		})
		publishDomainEvent(ctx, s.events, events.RoutingSessionCompleted, events.NewEnvelope(
			models.NotificationSessionCompleted,
			coachID,
			data,
		))
	}

	return updated, nil
}
