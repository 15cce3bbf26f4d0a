package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/models"
)

const relationshipColumns = `id, coach_id, client_id, status, created_at`

type RelationshipRepository struct {
	db DBTX
}

func NewRelationshipRepository(db DBTX) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

func scanRelationship(row rowScanner) (*models.CoachClientRelationship, error) {
	var relationship models.CoachClientRelationship
	if err := row.Scan(
		&relationship.ID,
		&relationship.CoachID,
		&relationship.ClientID,
		&relationship.Status,
		&relationship.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &relationship, nil
}

// UpsertActive creates the (coach, client) row as active or promotes the existing one.
func (r *RelationshipRepository) UpsertActive(
	ctx context.Context,
	coachID string,
	clientID string,
) (*models.CoachClientRelationship, error) {
	query := `
		INSERT INTO coach_client_relationships (coach_id, client_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (coach_id, client_id)
		DO UPDATE SET status = EXCLUDED.status
		RETURNING ` + relationshipColumns

	return scanRelationship(r.db.QueryRow(ctx, query, coachID, clientID))
}

// EnsurePending creates a pending row when the pair has none. An existing row,
// including an active one, is returned unchanged.
func (r *RelationshipRepository) EnsurePending(
	ctx context.Context,
	coachID string,
	clientID string,
) (*models.CoachClientRelationship, error) {
	relationship, err := scanRelationship(r.db.QueryRow(ctx, `
		INSERT INTO coach_client_relationships (coach_id, client_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (coach_id, client_id) DO NOTHING
		RETURNING `+relationshipColumns, coachID, clientID))
	if err == nil {
		return relationship, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return r.GetByPair(ctx, coachID, clientID)
}

func (r *RelationshipRepository) GetByPair(
	ctx context.Context,
	coachID string,
	clientID string,
) (*models.CoachClientRelationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM coach_client_relationships
		WHERE coach_id = $1 AND client_id = $2
	`
	return scanRelationship(r.db.QueryRow(ctx, query, coachID, clientID))
}

// ListForParticipant returns the relationships where the user is either the coach or the client.
func (r *RelationshipRepository) ListForParticipant(
	ctx context.Context,
	userID string,
) ([]models.CoachClientRelationship, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+relationshipColumns+`
		FROM coach_client_relationships
		WHERE coach_id = $1 OR client_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relationships := make([]models.CoachClientRelationship, 0)
	for rows.Next() {
		relationship, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, *relationship)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return relationships, nil
}
