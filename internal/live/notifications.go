package live

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

type NotificationSource interface {
	LoadNotifications(ctx context.Context, userID string) (*models.NotificationFeed, error)
	MarkAsRead(ctx context.Context, userID string, id string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string, id string) error
	FeedLimit() int
}

// NotificationView is the capped, newest-first feed of one user. Mutations
// apply locally first and are not rolled back when the store rejects them.
type NotificationView struct {
	userID string
	source NotificationSource
	items  []models.Notification
	unread int
	limit  int
}

func NewNotificationView(userID string, source NotificationSource) *NotificationView {
	limit := source.FeedLimit()
	if limit <= 0 {
		limit = 50
	}
	return &NotificationView{
		userID: userID,
		source: source,
		items:  []models.Notification{},
		limit:  limit,
	}
}

func (v *NotificationView) Load(ctx context.Context) error {
	feed, err := v.source.LoadNotifications(ctx, v.userID)
	if err != nil {
		return err
	}
	v.items = feed.Notifications
	v.unread = feed.UnreadCount
	return nil
}

func (v *NotificationView) MarkAsRead(ctx context.Context, id string) error {
	for idx := range v.items {
		if v.items[idx].ID != id {
			continue
		}
		if !v.items[idx].IsRead {
			v.items[idx].IsRead = true
			v.unread--
		}
		break
	}
	return v.source.MarkAsRead(ctx, v.userID, id)
}

func (v *NotificationView) MarkAllAsRead(ctx context.Context) error {
	for idx := range v.items {
		v.items[idx].IsRead = true
	}
	v.unread = 0
	return v.source.MarkAllAsRead(ctx, v.userID)
}

func (v *NotificationView) Delete(ctx context.Context, id string) error {
	for idx := range v.items {
		if v.items[idx].ID != id {
			continue
		}
		if !v.items[idx].IsRead {
			v.unread--
		}
		v.items = append(v.items[:idx], v.items[idx+1:]...)
		break
	}
	return v.source.Delete(ctx, v.userID, id)
}

// HandleInsert prepends a notification addressed to the view's user. It
// reports false for rows of other users and ids already in the feed.
func (v *NotificationView) HandleInsert(notification models.Notification) bool {
	if notification.UserID != v.userID {
		return false
	}
	for _, existing := range v.items {
		if existing.ID == notification.ID {
			return false
		}
	}

	v.items = append([]models.Notification{notification}, v.items...)
	if !notification.IsRead {
		v.unread++
	}

	for len(v.items) > v.limit {
		dropped := v.items[len(v.items)-1]
		v.items = v.items[:len(v.items)-1]
		if !dropped.IsRead {
			v.unread--
		}
	}
	return true
}

// HandleUpdate applies a changed row already in the feed, such as the read
// flag set when a booking request is decided elsewhere. It reports false when
// the row is unknown or its read state did not change.
func (v *NotificationView) HandleUpdate(notification models.Notification) bool {
	if notification.UserID != v.userID {
		return false
	}
	for idx := range v.items {
		if v.items[idx].ID != notification.ID {
			continue
		}
		if v.items[idx].IsRead == notification.IsRead {
			return false
		}
		if notification.IsRead {
			v.unread--
		} else {
			v.unread++
		}
		v.items[idx] = notification
		return true
	}
	return false
}

// IsActionable reports whether the notification with id still offers the
// accept/reject affordance.
func (v *NotificationView) IsActionable(id string) bool {
	for _, notification := range v.items {
		if notification.ID == id {
			return notification.IsActionable()
		}
	}
	return false
}

func (v *NotificationView) UnreadCount() int {
	return v.unread
}

func (v *NotificationView) Snapshot() models.NotificationFeed {
	items := make([]models.Notification, len(v.items))
	copy(items, v.items)
	return models.NotificationFeed{
		Notifications: items,
		UnreadCount:   v.unread,
	}
}
