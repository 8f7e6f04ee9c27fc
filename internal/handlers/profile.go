package handlers

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"neurolearn-backend/internal/middleware"
	"neurolearn-backend/internal/models"
)

var (
	readingLevels = []string{"beginner", "intermediate", "advanced"}
	ageGroups     = []string{"child", "teen", "adult"}
)

type profileStore interface {
	Get(ctx context.Context, learnerID uuid.UUID) (*models.LearnerProfile, error)
	Upsert(ctx context.Context, p *models.LearnerProfile) error
}

type ProfileHandler struct {
	profiles profileStore
}

func NewProfileHandler(profiles profileStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), middleware.GetLearnerID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load profile", r))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.DisplayName != nil && utf8.RuneCountInString(*req.DisplayName) > 80 {
		fields["display_name"] = "Must be at most 80 characters"
	}
	if req.ReadingLevel != nil && !slices.Contains(readingLevels, *req.ReadingLevel) {
		fields["reading_level"] = "Must be one of " + strings.Join(readingLevels, ", ")
	}
	if req.AgeGroup != nil && !slices.Contains(ageGroups, *req.AgeGroup) {
		fields["age_group"] = "Must be one of " + strings.Join(ageGroups, ", ")
	}
	if req.Language != nil && (len(*req.Language) < 2 || len(*req.Language) > 10) {
		fields["language"] = "Must be a language code"
	}
	if len(req.Interests) > 20 {
		fields["interests"] = "At most 20 interests"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	profile, err := h.profiles.Get(r.Context(), middleware.GetLearnerID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load profile", r))
		return
	}

	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.ReadingLevel != nil {
		profile.ReadingLevel = *req.ReadingLevel
	}
	if req.AgeGroup != nil {
		profile.AgeGroup = *req.AgeGroup
	}
	if req.Language != nil {
		profile.Language = *req.Language
	}
	if req.Interests != nil {
		profile.Interests = req.Interests
	}

	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save profile", r))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type activityLister interface {
	ListByLearner(ctx context.Context, learnerID uuid.UUID, kind string, limit, offset int) ([]models.Activity, error)
}

type ActivityHandler struct {
	activities activityLister
}

func NewActivityHandler(activities activityLister) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List returns the learner's activity, newest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !slices.Contains(models.ActivityKinds, kind) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"kind": "Must be one of " + strings.Join(models.ActivityKinds, ", ")}, r))
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	items, err := h.activities.ListByLearner(r.Context(), middleware.GetLearnerID(r.Context()), kind, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list activity", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ActivityListResponse{Items: items, Limit: limit, Offset: offset})
}

type jobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type JobHandler struct {
	jobs jobReader
}

func NewJobHandler(jobs jobReader) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	if job.LearnerID != middleware.GetLearnerID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// HealthHandler reports liveness plus the state of each dependency check.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{"status": overall, "dependencies": deps})
}
