package models

import "time"

const (
	NotificationBookingRequest   = "booking_request"
	NotificationBookingAccepted  = "booking_accepted"
	NotificationBookingRejected  = "booking_rejected"
	NotificationNewMedia         = "new_media"
	NotificationSessionCompleted = "session_completed"
)

// Correlation keys carried in Notification.Data.
const (
	DataBookingRequestID = "booking_request_id"
	DataClientID         = "client_id"
	DataCoachID          = "coach_id"
	DataPackageID        = "package_id"
	DataMediaID          = "media_id"
	DataSessionID        = "session_id"
	DataTitle            = "title"
)

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// DataString returns Data[key] when it is a non-empty string.
func (n Notification) DataString(key string) (string, bool) {
	if n.Data == nil {
		return "", false
	}
	value, ok := n.Data[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// IsActionable reports whether accept/reject affordances still apply.
func (n Notification) IsActionable() bool {
	return n.Type == NotificationBookingRequest && !n.IsRead
}

type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
