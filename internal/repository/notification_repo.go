package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, data, is_read, created_at`

type CreateNotificationInput struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var notification models.Notification
	if err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&notification.Data,
		&notification.IsRead,
		&notification.CreatedAt,
	); err != nil {
		return nil, err
	}
	if notification.Data == nil {
		notification.Data = map[string]any{}
	}
	return &notification, nil
}

func (r *NotificationRepository) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	data := input.Data
	if data == nil {
		data = map[string]any{}
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, data, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING ` + notificationColumns

	return scanNotification(r.db.QueryRow(ctx, query, input.UserID, input.Type, input.Title, input.Message, data))
}

func (r *NotificationRepository) GetByIDForUser(ctx context.Context, id string, userID string) (*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE id = $1 AND user_id = $2
	`
	return scanNotification(r.db.QueryRow(ctx, query, id, userID))
}

// ListRecent returns at most limit notifications for the user, newest first.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkRead is idempotent; it returns pgx.ErrNoRows when the notification
// does not exist or belongs to another user.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkBookingRequestRead marks the coach's unread booking_request
// notifications for bookingRequestID as read and returns the updated rows.
func (r *NotificationRepository) MarkBookingRequestRead(
	ctx context.Context,
	coachID string,
	bookingRequestID string,
) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1
			AND type = $2
			AND is_read = FALSE
			AND data->>'booking_request_id' = $3
		RETURNING `+notificationColumns,
		coachID, models.NotificationBookingRequest, bookingRequestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updated := make([]models.Notification, 0, 1)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *notification)
	}
	return updated, rows.Err()
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID string, id string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
