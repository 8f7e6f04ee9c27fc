package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"neurolearn-backend/internal/models"
	"neurolearn-backend/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: chimiddleware.GetReqID(r.Context()),
		},
	}
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *services.ValidationError
		nfErr  *services.NotFoundError
		fbErr  *services.ForbiddenError
		rlErr  *services.RateLimitError
		genErr *services.GenerationError
	)

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", vErr.Fields, r))
	case errors.As(err, &nfErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", nfErr.Message, r))
	case errors.As(err, &fbErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", fbErr.Message, r))
	case errors.As(err, &rlErr):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rlErr.Message, r))
	case errors.As(err, &genErr) && genErr.InvalidResponse():
		writeJSON(w, http.StatusBadGateway, errorResp("AI_RESPONSE_INVALID", "The AI returned an unexpected answer. Please try again.", r))
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", "The AI service is unavailable right now. Please try again later.", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
