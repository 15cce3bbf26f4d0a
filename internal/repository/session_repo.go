package repository

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

const sessionColumns = `id, coach_id, client_id, user_client_id, session_date, session_type, duration, location, status, created_at, updated_at`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.CoachID,
		&session.ClientID,
		&session.UserClientID,
		&session.SessionDate,
		&session.SessionType,
		&session.Duration,
		&session.Location,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID string,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns

	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}
