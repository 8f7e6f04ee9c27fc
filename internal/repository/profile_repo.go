package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"neurolearn-backend/internal/models"
)

type ProfileRepo struct {
	db Querier
}

func NewProfileRepo(db Querier) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Get returns the stored profile, or the default profile when the learner
// has never saved one.
func (r *ProfileRepo) Get(ctx context.Context, learnerID uuid.UUID) (*models.LearnerProfile, error) {
	p := &models.LearnerProfile{}
	query := `SELECT learner_id, display_name, reading_level, age_group, interests, language, updated_at
		FROM learner_profiles WHERE learner_id = $1`

	err := r.db.QueryRow(ctx, query, learnerID).Scan(
		&p.LearnerID, &p.DisplayName, &p.ReadingLevel, &p.AgeGroup, &p.Interests, &p.Language, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultProfile(learnerID), nil
	}
	if err != nil {
		return nil, err
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return p, nil
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *models.LearnerProfile) error {
	if p.Interests == nil {
		p.Interests = []string{}
	}

	query := `INSERT INTO learner_profiles (learner_id, display_name, reading_level, age_group, interests, language)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (learner_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			reading_level = EXCLUDED.reading_level,
			age_group = EXCLUDED.age_group,
			interests = EXCLUDED.interests,
			language = EXCLUDED.language,
			updated_at = NOW()
		RETURNING updated_at`

	return r.db.QueryRow(ctx, query,
		p.LearnerID, p.DisplayName, p.ReadingLevel, p.AgeGroup, p.Interests, p.Language,
	).Scan(&p.UpdatedAt)
}
