package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neurolearn-backend/internal/middleware"
	"neurolearn-backend/internal/models"
	"neurolearn-backend/internal/worker"
)

type learningService interface {
	Simplify(ctx context.Context, learner *models.LearnerProfile, req models.SimplifyRequest) (*models.SimplifiedContent, error)
	ExpandTopic(ctx context.Context, learner *models.LearnerProfile, req models.ExpandTopicRequest) (*models.TopicExpansion, error)
	GradeComprehension(ctx context.Context, learner *models.LearnerProfile, req models.GradeRequest) (*models.GradeResult, error)
	GenerateChallenge(ctx context.Context, learner *models.LearnerProfile, req models.ChallengeRequest) (*models.Challenge, error)
	EvaluateChallenge(ctx context.Context, learner *models.LearnerProfile, req models.EvaluateRequest) (*models.ChallengeFeedback, error)
}

type profileReader interface {
	Get(ctx context.Context, learnerID uuid.UUID) (*models.LearnerProfile, error)
}

type jobCreator interface {
	Create(ctx context.Context, j *models.Job) error
}

type LearningHandler struct {
	learning learningService
	profiles profileReader
	jobs     jobCreator
	enqueue  func(ctx context.Context, job *models.Job) error
	logger   *zap.Logger
}

func NewLearningHandler(learning learningService, profiles profileReader, jobs jobCreator, queue *redis.Client, logger *zap.Logger) *LearningHandler {
	return &LearningHandler{
		learning: learning,
		profiles: profiles,
		jobs:     jobs,
		enqueue: func(ctx context.Context, job *models.Job) error {
			return worker.Enqueue(ctx, queue, job)
		},
		logger: logger.Named("handlers"),
	}
}

func (h *LearningHandler) learner(w http.ResponseWriter, r *http.Request) (*models.LearnerProfile, bool) {
	learnerID := middleware.GetLearnerID(r.Context())
	learner, err := h.profiles.Get(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.Stringer("learner_id", learnerID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load learner profile", r))
		return nil, false
	}
	return learner, true
}

func (h *LearningHandler) Simplify(w http.ResponseWriter, r *http.Request) {
	var req models.SimplifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	result, err := h.learning.Simplify(r.Context(), learner, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Expand runs synchronously unless ?async=true is set.
func (h *LearningHandler) Expand(w http.ResponseWriter, r *http.Request) {
	var req models.ExpandTopicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"topic": "Topic is required"}, r))
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.submit(w, r, models.JobTypeTopicExpand, req)
		return
	}

	learner, ok := h.learner(w, r)
	if !ok {
		return
	}
	result, err := h.learning.ExpandTopic(r.Context(), learner, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LearningHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"content": "Content is required"}, r))
		return
	}
	h.submit(w, r, models.JobTypeQuiz, req)
}

func (h *LearningHandler) Comprehension(w http.ResponseWriter, r *http.Request) {
	var req models.ComprehensionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"content": "Content is required"}, r))
		return
	}
	h.submit(w, r, models.JobTypeComprehension, req)
}

func (h *LearningHandler) Illustrate(w http.ResponseWriter, r *http.Request) {
	var req models.IllustrateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"topic": "Topic is required"}, r))
		return
	}
	h.submit(w, r, models.JobTypeIllustration, req)
}

func (h *LearningHandler) Grade(w http.ResponseWriter, r *http.Request) {
	var req models.GradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	result, err := h.learning.GradeComprehension(r.Context(), learner, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LearningHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req models.ChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	result, err := h.learning.GenerateChallenge(r.Context(), learner, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LearningHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	result, err := h.learning.EvaluateChallenge(r.Context(), learner, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// submit persists a job for the request and queues it for the worker pool.
func (h *LearningHandler) submit(w http.ResponseWriter, r *http.Request, jobType string, req any) {
	config, err := json.Marshal(req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to encode job", r))
		return
	}

	job := &models.Job{
		LearnerID:  middleware.GetLearnerID(r.Context()),
		Type:       jobType,
		ConfigJSON: config,
	}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		h.logger.Error("failed to create job", zap.String("type", jobType), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	if err := h.enqueue(r.Context(), job); err != nil {
		h.logger.Error("failed to enqueue job", zap.Stringer("job_id", job.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"type":   job.Type,
		"status": job.Status,
	})
}
