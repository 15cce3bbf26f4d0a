package repository

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

type CreateClientMediaInput struct {
	ClientID    string
	CoachID     string
	FilePath    string
	Title       string
	Description *string
	MediaType   string
	UploadedBy  string
}

type MediaRepository struct {
	db DBTX
}

func NewMediaRepository(db DBTX) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, input CreateClientMediaInput) (*models.ClientMedia, error) {
	query := `
		INSERT INTO client_media (client_id, coach_id, file_path, title, description, media_type, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, client_id, coach_id, file_path, title, description, media_type, uploaded_by, created_at
	`

	var media models.ClientMedia
	err := r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.CoachID,
		input.FilePath,
		input.Title,
		input.Description,
		input.MediaType,
		input.UploadedBy,
	).Scan(
		&media.ID,
		&media.ClientID,
		&media.CoachID,
		&media.FilePath,
		&media.Title,
		&media.Description,
		&media.MediaType,
		&media.UploadedBy,
		&media.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &media, nil
}
