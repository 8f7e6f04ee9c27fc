package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"neurolearn-backend/internal/models"
)

type ActivityRepo struct {
	db Querier
}

func NewActivityRepo(db Querier) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Record(ctx context.Context, a *models.Activity) error {
	a.ID = uuid.New()
	if len(a.ResultJSON) == 0 {
		a.ResultJSON = json.RawMessage("{}")
	}

	query := `INSERT INTO activities (id, learner_id, kind, input_summary, result_json, score)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.db.QueryRow(ctx, query,
		a.ID, a.LearnerID, a.Kind, a.InputSummary, a.ResultJSON, a.Score,
	).Scan(&a.CreatedAt)
}

// ListByLearner returns the learner's activity, newest first. An empty kind
// matches every kind.
func (r *ActivityRepo) ListByLearner(ctx context.Context, learnerID uuid.UUID, kind string, limit, offset int) ([]models.Activity, error) {
	query := `SELECT id, learner_id, kind, input_summary, result_json, score, created_at
		FROM activities
		WHERE learner_id = $1 AND ($2::text = '' OR kind = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, learnerID, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.Kind, &a.InputSummary, &a.ResultJSON, &a.Score, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
