package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"neurolearn-backend/internal/models"
)

type JobRepo struct {
	db Querier
}

func NewJobRepo(db Querier) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = "pending"
	j.RetryCount = 0
	j.MaxRetries = 3

	if len(j.ConfigJSON) == 0 {
		j.ConfigJSON = json.RawMessage("{}")
	}

	query := `INSERT INTO jobs (id, learner_id, type, config_json, status, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.db.QueryRow(ctx, query,
		j.ID, j.LearnerID, j.Type, j.ConfigJSON, j.Status, j.RetryCount, j.MaxRetries,
	).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{}
	query := `SELECT id, learner_id, type, config_json, result_json, status, retry_count, max_retries, error_message, created_at, completed_at
		FROM jobs WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.LearnerID, &j.Type, &j.ConfigJSON, &j.ResultJSON, &j.Status,
		&j.RetryCount, &j.MaxRetries, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == "completed" || status == "failed" {
		_, err := r.db.Exec(ctx,
			"UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3",
			status, time.Now(), id,
		)
		return err
	}
	_, err := r.db.Exec(ctx, "UPDATE jobs SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE jobs SET error_message = $1, retry_count = $2 WHERE id = $3",
		errMsg, retryCount, id,
	)
	return err
}

// UpdateResult stores the job output and marks it completed.
func (r *JobRepo) UpdateResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	_, err := r.db.Exec(ctx,
		"UPDATE jobs SET result_json = $1, status = 'completed', error_message = NULL, completed_at = $2 WHERE id = $3",
		result, time.Now(), id,
	)
	return err
}
