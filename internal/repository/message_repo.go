package repository

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

const messageColumns = `id, sender_id, receiver_id, content, is_read, created_at`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var message models.Message
	if err := row.Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) Create(
	ctx context.Context,
	senderID string,
	receiverID string,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, content, is_read)
		VALUES ($1, $2, $3, FALSE)
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(ctx, query, senderID, receiverID, content))
}

// ListForParticipant returns every message the user sent or received, newest first.
func (r *MessageRepository) ListForParticipant(ctx context.Context, userID string) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// ListThread returns the messages exchanged between the two users, oldest first.
func (r *MessageRepository) ListThread(ctx context.Context, userID string, partnerID string) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, userID, partnerID)
}

// MarkThreadRead flags unread messages sent by partnerID to readerID as read.
func (r *MessageRepository) MarkThreadRead(ctx context.Context, readerID string, partnerID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE receiver_id = $1
		  AND sender_id = $2
		  AND is_read = FALSE
	`, readerID, partnerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
