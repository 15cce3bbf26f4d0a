package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachSync/internal/models"
)

// BookingTx is the set of writes a booking decision performs atomically.
type BookingTx interface {
	GetBookingRequestForUpdate(ctx context.Context, id string) (*models.BookingRequest, error)
	UpdateBookingStatusIfCurrent(ctx context.Context, id string, currentStatus string, nextStatus string) (*models.BookingRequest, error)
	UpsertActiveRelationship(ctx context.Context, coachID string, clientID string) (*models.CoachClientRelationship, error)
	MarkBookingNotificationsRead(ctx context.Context, coachID string, bookingRequestID string) ([]models.Notification, error)
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunBookingTx runs fn inside a single transaction. The transaction commits
// only when fn returns nil.
func (s *Store) RunBookingTx(ctx context.Context, fn func(tx BookingTx) error) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return fn(&bookingTx{
			bookings:      NewBookingRequestRepository(tx),
			relationships: NewRelationshipRepository(tx),
			notifications: NewNotificationRepository(tx),
		})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type bookingTx struct {
	bookings      *BookingRequestRepository
	relationships *RelationshipRepository
	notifications *NotificationRepository
}

func (t *bookingTx) GetBookingRequestForUpdate(ctx context.Context, id string) (*models.BookingRequest, error) {
	return t.bookings.GetByIDForUpdate(ctx, id)
}

func (t *bookingTx) UpdateBookingStatusIfCurrent(
	ctx context.Context,
	id string,
	currentStatus string,
	nextStatus string,
) (*models.BookingRequest, error) {
	return t.bookings.UpdateStatusIfCurrent(ctx, id, currentStatus, nextStatus)
}

func (t *bookingTx) UpsertActiveRelationship(
	ctx context.Context,
	coachID string,
	clientID string,
) (*models.CoachClientRelationship, error) {
	return t.relationships.UpsertActive(ctx, coachID, clientID)
}

func (t *bookingTx) MarkBookingNotificationsRead(
	ctx context.Context,
	coachID string,
	bookingRequestID string,
) ([]models.Notification, error) {
	return t.notifications.MarkBookingRequestRead(ctx, coachID, bookingRequestID)
}

// CreateBookingRequest makes sure the pair has a relationship row and inserts
// the pending request in the same transaction.
func (s *Store) CreateBookingRequest(ctx context.Context, input CreateBookingRequestInput) (*models.BookingRequest, error) {
	var request *models.BookingRequest
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := NewRelationshipRepository(tx).EnsurePending(ctx, input.CoachID, input.ClientID); err != nil {
			return err
		}

		created, err := NewBookingRequestRepository(tx).Create(ctx, input)
		if err != nil {
			return err
		}
		request = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}
