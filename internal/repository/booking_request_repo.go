package repository

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

const bookingRequestColumns = `id, client_id, coach_id, package_id, message, requested_sessions, status, created_at, updated_at`

type CreateBookingRequestInput struct {
	ClientID          string
	CoachID           string
	PackageID         *string
	Message           string
	RequestedSessions *int
}

type BookingRequestRepository struct {
	db DBTX
}

func NewBookingRequestRepository(db DBTX) *BookingRequestRepository {
	return &BookingRequestRepository{db: db}
}

func scanBookingRequest(row rowScanner) (*models.BookingRequest, error) {
	var request models.BookingRequest
	if err := row.Scan(
		&request.ID,
		&request.ClientID,
		&request.CoachID,
		&request.PackageID,
		&request.Message,
		&request.RequestedSessions,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *BookingRequestRepository) Create(ctx context.Context, input CreateBookingRequestInput) (*models.BookingRequest, error) {
	query := `
		INSERT INTO booking_requests (client_id, coach_id, package_id, message, requested_sessions, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING ` + bookingRequestColumns

	return scanBookingRequest(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.CoachID,
		input.PackageID,
		input.Message,
		input.RequestedSessions,
	))
}

func (r *BookingRequestRepository) GetByID(ctx context.Context, id string) (*models.BookingRequest, error) {
	query := `
		SELECT ` + bookingRequestColumns + `
		FROM booking_requests
		WHERE id = $1
	`
	return scanBookingRequest(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.BookingRequest, error) {
	query := `
		SELECT ` + bookingRequestColumns + `
		FROM booking_requests
		WHERE id = $1
		FOR UPDATE
	`
	return scanBookingRequest(r.db.QueryRow(ctx, query, id))
}

// UpdateStatusIfCurrent moves the request from currentStatus to nextStatus.
// It returns pgx.ErrNoRows when the row is no longer in currentStatus.
func (r *BookingRequestRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id string,
	currentStatus string,
	nextStatus string,
) (*models.BookingRequest, error) {
	query := `
		UPDATE booking_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingRequestColumns

	return scanBookingRequest(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus))
}

func (r *BookingRequestRepository) ListByCoach(
	ctx context.Context,
	coachID string,
	limit int,
	offset int,
) ([]models.BookingRequest, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM booking_requests
		WHERE coach_id = $1
	`, coachID).Scan(&total); err != nil {
		return nil, 0, err
	}

	requests, err := r.list(ctx, `
		SELECT `+bookingRequestColumns+`
		FROM booking_requests
		WHERE coach_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, coachID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *BookingRequestRepository) ListByClient(ctx context.Context, clientID string) ([]models.BookingRequest, error) {
	return r.list(ctx, `
		SELECT `+bookingRequestColumns+`
		FROM booking_requests
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`, clientID)
}

func (r *BookingRequestRepository) list(ctx context.Context, query string, args ...any) ([]models.BookingRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.BookingRequest, 0)
	for rows.Next() {
		request, err := scanBookingRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}
