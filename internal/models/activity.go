package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActivitySimplify      = "simplify"
	ActivityExpand        = "expand"
	ActivityQuiz          = "quiz"
	ActivityComprehension = "comprehension"
	ActivityGrade         = "grade"
	ActivityChallenge     = "challenge"
	ActivityEvaluate      = "evaluate"
	ActivityIllustrate    = "illustrate"
)

// ActivityKinds lists every kind accepted by the activity filter.
var ActivityKinds = []string{
	ActivitySimplify, ActivityExpand, ActivityQuiz, ActivityComprehension,
	ActivityGrade, ActivityChallenge, ActivityEvaluate, ActivityIllustrate,
}

type Activity struct {
	ID           uuid.UUID       `json:"id"`
	LearnerID    uuid.UUID       `json:"learner_id"`
	Kind         string          `json:"kind"`
	InputSummary string          `json:"input_summary"`
	ResultJSON   json.RawMessage `json:"result"`
	Score        *float64        `json:"score"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ActivityListResponse struct {
	Items  []Activity `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
