package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/observability"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/saeid-a/CoachSync/internal/repository"
)

const DefaultNotificationFeedLimit = 50

type notificationStore interface {
	Create(ctx context.Context, input repository.CreateNotificationInput) (*models.Notification, error)
	GetByIDForUser(ctx context.Context, id string, userID string) (*models.Notification, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string, id string) error
}

// notificationCreator is what other flows need to enqueue a notification.
type notificationCreator interface {
	CreateNotification(ctx context.Context, input repository.CreateNotificationInput) (*models.Notification, error)
}

type NotificationService struct {
	notifications notificationStore
	changes       realtime.Publisher
	feedLimit     int
}

func NewNotificationService(
	notifications notificationStore,
	changes realtime.Publisher,
	feedLimit int,
) *NotificationService {
	if changes == nil {
		changes = realtime.NoopPublisher{}
	}
	if feedLimit <= 0 {
		feedLimit = DefaultNotificationFeedLimit
	}
	return &NotificationService{
		notifications: notifications,
		changes:       changes,
		feedLimit:     feedLimit,
	}
}

func (s *NotificationService) FeedLimit() int {
	return s.feedLimit
}

// LoadNotifications returns the newest notifications of userID. UnreadCount
// only covers the returned page.
func (s *NotificationService) LoadNotifications(ctx context.Context, userID string) (*models.NotificationFeed, error) {
	if !validID(userID) {
		return nil, ErrInvalidInput
	}

	notifications, err := s.notifications.ListRecent(ctx, userID, s.feedLimit)
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, notification := range notifications {
		if !notification.IsRead {
			unread++
		}
	}

	return &models.NotificationFeed{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) GetNotification(ctx context.Context, userID string, id string) (*models.Notification, error) {
	if !validIDs(userID, id) {
		return nil, ErrInvalidInput
	}
	notification, err := s.notifications.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return notification, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, id string) error {
	if !validIDs(userID, id) {
		return ErrInvalidInput
	}
	if err := s.notifications.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkAllAsRead is idempotent; a second call finds nothing left to update.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if !validID(userID) {
		return ErrInvalidInput
	}
	_, err := s.notifications.MarkAllRead(ctx, userID)
	return err
}

func (s *NotificationService) Delete(ctx context.Context, userID string, id string) error {
	if !validIDs(userID, id) {
		return ErrInvalidInput
	}
	if err := s.notifications.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// CreateNotification enqueues a notification for input.UserID.
func (s *NotificationService) CreateNotification(
	ctx context.Context,
	input repository.CreateNotificationInput,
) (*models.Notification, error) {
	input.Type = strings.TrimSpace(input.Type)
	input.Title = strings.TrimSpace(input.Title)
	if !validID(input.UserID) || input.Type == "" || input.Title == "" {
		return nil, ErrInvalidInput
	}

	notification, err := s.notifications.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	publishInsert(ctx, s.changes, realtime.TableNotifications, notification)
	return notification, nil
}

// notifyBestEffort creates a notification on behalf of a larger flow. Failures
// are logged and counted but never reach the caller.
func notifyBestEffort(ctx context.Context, creator notificationCreator, input repository.CreateNotificationInput) {
	if creator == nil {
		return
	}
	if _, err := creator.CreateNotification(ctx, input); err != nil {
		observability.IncNotificationDeliveryFailure(input.Type)
		log.Printf("create %s notification for %s: %v", input.Type, input.UserID, err)
	}
}
