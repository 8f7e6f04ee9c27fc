package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeQuiz          = "quiz-generation"
	JobTypeComprehension = "comprehension-generation"
	JobTypeTopicExpand   = "topic-expansion"
	JobTypeIllustration  = "illustration-generation"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	LearnerID    uuid.UUID       `json:"learner_id"`
	Type         string          `json:"type"`
	ConfigJSON   json.RawMessage `json:"config"`
	ResultJSON   json.RawMessage `json:"result,omitempty"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID                     uuid.UUID `json:"job_id"`
	Step                      int       `json:"step"`
	StepName                  string    `json:"step_name"`
	EstimatedSecondsRemaining int       `json:"estimated_seconds_remaining"`
}

type CompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ResultType string    `json:"result_type"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// LearnerChannel is the pub/sub channel carrying job updates for a learner.
func LearnerChannel(learnerID uuid.UUID) string {
	return "learner_updates:" + learnerID.String()
}
