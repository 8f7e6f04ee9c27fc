package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neurolearn-backend/internal/models"
	"neurolearn-backend/internal/services"
)

const maxAttempts = 3

// Learning is the subset of the learning service that runs as background jobs.
type Learning interface {
	ExpandTopic(ctx context.Context, learner *models.LearnerProfile, req models.ExpandTopicRequest) (*models.TopicExpansion, error)
	GenerateQuiz(ctx context.Context, learner *models.LearnerProfile, req models.QuizRequest) (*models.Quiz, error)
	GenerateComprehensionTest(ctx context.Context, learner *models.LearnerProfile, req models.ComprehensionRequest) (*models.ComprehensionTest, error)
	Illustrate(ctx context.Context, learner *models.LearnerProfile, req models.IllustrateRequest) (*models.IllustrationSet, error)
}

type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
	UpdateResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error
}

type ProfileStore interface {
	Get(ctx context.Context, learnerID uuid.UUID) (*models.LearnerProfile, error)
}

var jobTypes = []string{
	models.JobTypeQuiz,
	models.JobTypeComprehension,
	models.JobTypeTopicExpand,
	models.JobTypeIllustration,
}

func QueueName(jobType string) string {
	return "queue:" + jobType
}

// Enqueue pushes a persisted job onto its type's queue.
func Enqueue(ctx context.Context, rdb *redis.Client, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	return rdb.LPush(ctx, QueueName(job.Type), data).Err()
}

// Publish sends a websocket message to every connection of the learner.
func Publish(ctx context.Context, rdb *redis.Client, learnerID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, models.LearnerChannel(learnerID), data).Err()
}

type Pool struct {
	redis       *redis.Client
	learning    Learning
	jobs        JobStore
	profiles    ProfileStore
	workerCount int
	stopChan    chan struct{}
	logger      *zap.Logger
	requeue     func(job *models.Job, delay time.Duration)
}

func NewPool(
	redisClient *redis.Client,
	learning Learning,
	jobs JobStore,
	profiles ProfileStore,
	workerCount int,
	logger *zap.Logger,
) *Pool {
	p := &Pool{
		redis:       redisClient,
		learning:    learning,
		jobs:        jobs,
		profiles:    profiles,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		logger:      logger.Named("worker"),
	}
	p.requeue = p.requeueAfter
	return p
}

func (p *Pool) Start() {
	queues := make([]string, len(jobTypes))
	for i, t := range jobTypes {
		queues[i] = QueueName(t)
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	p.logger.Info("workers started", zap.Int("count", p.workerCount), zap.Strings("queues", queues))
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	log := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-p.stopChan:
			log.Info("worker shutting down")
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warn("queue read failed", zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Error("failed to parse job", zap.String("queue", result[0]), zap.Error(err))
			continue
		}

		lockKey := "job_lock:" + job.ID.String()
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		p.runJob(ctx, &job)
		p.redis.Del(ctx, lockKey)
	}
}

// runJob executes one job and records its outcome.
func (p *Pool) runJob(ctx context.Context, job *models.Job) {
	log := p.logger.With(zap.Stringer("job_id", job.ID), zap.String("type", job.Type))
	log.Info("processing job", zap.Int("retry_count", job.RetryCount))

	if err := p.jobs.UpdateStatus(ctx, job.ID, "processing"); err != nil {
		log.Warn("failed to mark job processing", zap.Error(err))
	}
	p.publish(ctx, job.LearnerID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:                     job.ID,
			Step:                      1,
			StepName:                  stepName(job.Type),
			EstimatedSecondsRemaining: 20,
		},
	})

	result, err := p.process(ctx, job)
	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	p.handleSuccess(ctx, job, result)
}

func (p *Pool) process(ctx context.Context, job *models.Job) (any, error) {
	learner, err := p.profiles.Get(ctx, job.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner profile: %w", err)
	}

	switch job.Type {
	case models.JobTypeQuiz:
		var req models.QuizRequest
		if err := decodeConfig(job, &req); err != nil {
			return nil, err
		}
		return p.learning.GenerateQuiz(ctx, learner, req)

	case models.JobTypeComprehension:
		var req models.ComprehensionRequest
		if err := decodeConfig(job, &req); err != nil {
			return nil, err
		}
		return p.learning.GenerateComprehensionTest(ctx, learner, req)

	case models.JobTypeTopicExpand:
		var req models.ExpandTopicRequest
		if err := decodeConfig(job, &req); err != nil {
			return nil, err
		}
		return p.learning.ExpandTopic(ctx, learner, req)

	case models.JobTypeIllustration:
		var req models.IllustrateRequest
		if err := decodeConfig(job, &req); err != nil {
			return nil, err
		}
		return p.learning.Illustrate(ctx, learner, req)

	default:
		return nil, &permanentError{err: fmt.Errorf("unknown job type: %s", job.Type)}
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		p.handleFailure(ctx, job, &permanentError{err: fmt.Errorf("failed to encode result: %w", err)})
		return
	}

	if err := p.jobs.UpdateResult(ctx, job.ID, data); err != nil {
		p.handleFailure(ctx, job, fmt.Errorf("failed to store result: %w", err))
		return
	}

	p.logger.Info("job completed", zap.Stringer("job_id", job.ID), zap.String("type", job.Type))
	p.publish(ctx, job.LearnerID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultType: resultType(job.Type),
		},
	})
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()
	log := p.logger.With(zap.Stringer("job_id", job.ID), zap.Int("attempt", job.RetryCount), zap.Error(err))

	if job.RetryCount < maxAttempts && retryable(err) {
		log.Warn("job failed, retrying")
		p.jobs.UpdateStatus(ctx, job.ID, "pending")
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		p.requeue(job, backoff)
		return
	}

	log.Error("job failed permanently")
	p.jobs.UpdateStatus(ctx, job.ID, "failed")
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.publish(ctx, job.LearnerID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    errorCode(err),
			ErrorMessage: publicMessage(err),
		},
	})
}

func (p *Pool) requeueAfter(job *models.Job, delay time.Duration) {
	snapshot := *job
	time.AfterFunc(delay, func() {
		if err := Enqueue(context.Background(), p.redis, &snapshot); err != nil {
			p.logger.Error("failed to requeue job", zap.Stringer("job_id", snapshot.ID), zap.Error(err))
		}
	})
}

func (p *Pool) publish(ctx context.Context, learnerID uuid.UUID, msg models.WSMessage) {
	if p.redis == nil {
		return
	}
	if err := Publish(ctx, p.redis, learnerID, msg); err != nil {
		p.logger.Warn("failed to publish update", zap.Stringer("learner_id", learnerID), zap.Error(err))
	}
}

// permanentError marks failures that a retry cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func decodeConfig(job *models.Job, dst any) error {
	if err := json.Unmarshal(job.ConfigJSON, dst); err != nil {
		return &permanentError{err: fmt.Errorf("invalid job config: %w", err)}
	}
	return nil
}

func retryable(err error) bool {
	var perm *permanentError
	var vErr *services.ValidationError
	return !errors.As(err, &perm) && !errors.As(err, &vErr)
}

func errorCode(err error) string {
	var genErr *services.GenerationError
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &genErr) && genErr.InvalidResponse():
		return "AI_RESPONSE_INVALID"
	case errors.As(err, &genErr):
		return "AI_ERROR"
	case errors.As(err, &vErr):
		return "VALIDATION_ERROR"
	default:
		return "JOB_FAILED"
	}
}

func publicMessage(err error) string {
	switch errorCode(err) {
	case "AI_RESPONSE_INVALID":
		return "The AI returned an unexpected answer. Please try again."
	case "AI_ERROR":
		return "The AI service is unavailable right now. Please try again later."
	case "VALIDATION_ERROR":
		return "The request was invalid."
	default:
		return "Something went wrong while processing this request."
	}
}

func stepName(jobType string) string {
	switch jobType {
	case models.JobTypeQuiz:
		return "Generating Questions"
	case models.JobTypeComprehension:
		return "Writing Comprehension Test"
	case models.JobTypeTopicExpand:
		return "Exploring Topic"
	case models.JobTypeIllustration:
		return "Drawing Illustrations"
	default:
		return "Processing"
	}
}

func resultType(jobType string) string {
	switch jobType {
	case models.JobTypeQuiz:
		return "quiz"
	case models.JobTypeComprehension:
		return "comprehension"
	case models.JobTypeTopicExpand:
		return "topic_expansion"
	case models.JobTypeIllustration:
		return "illustrations"
	default:
		return "unknown"
	}
}
