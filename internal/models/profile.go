package models

import (
	"time"

	"github.com/google/uuid"
)

type LearnerProfile struct {
	LearnerID    uuid.UUID `json:"learner_id"`
	DisplayName  string    `json:"display_name"`
	ReadingLevel string    `json:"reading_level"` // "beginner" | "intermediate" | "advanced"
	AgeGroup     string    `json:"age_group"`     // "child" | "teen" | "adult"
	Interests    []string  `json:"interests"`
	Language     string    `json:"language"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultProfile is served for learners who never saved one.
func DefaultProfile(learnerID uuid.UUID) *LearnerProfile {
	return &LearnerProfile{
		LearnerID:    learnerID,
		ReadingLevel: "intermediate",
		AgeGroup:     "adult",
		Interests:    []string{},
		Language:     "en",
	}
}

type UpdateProfileRequest struct {
	DisplayName  *string  `json:"display_name"`
	ReadingLevel *string  `json:"reading_level"`
	AgeGroup     *string  `json:"age_group"`
	Interests    []string `json:"interests"`
	Language     *string  `json:"language"`
}
