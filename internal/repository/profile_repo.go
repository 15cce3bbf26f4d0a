package repository

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByIDs resolves all requested profiles in one query. Unknown ids are absent from the map.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	profiles := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, first_name, last_name, avatar_url
		FROM profiles
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var profile models.Profile
		if err := rows.Scan(&profile.ID, &profile.FirstName, &profile.LastName, &profile.AvatarURL); err != nil {
			return nil, err
		}
		profiles[profile.ID] = profile
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}
