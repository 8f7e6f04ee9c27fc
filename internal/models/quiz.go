package models

import (
	"errors"
	"fmt"
)

type QuizRequest struct {
	Content      string `json:"content"`
	Title        string `json:"title"`
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"` // "easy" | "medium" | "hard"
	IncludeTF    bool   `json:"include_true_false"`
}

type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	Question     string   `json:"question"`
	Type         string   `json:"type"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Hint         string   `json:"hint"`
	Difficulty   string   `json:"difficulty"`
	Topic        string   `json:"topic"`
}

// QuizQuestions is the array shape the model is asked to return.
type QuizQuestions []QuizQuestion

func (q QuizQuestions) Validate() error {
	if len(q) == 0 {
		return errors.New("quiz has no questions")
	}
	for _, question := range q {
		if question.Question != "" && len(question.Options) > 0 {
			return nil
		}
	}
	return fmt.Errorf("none of the %d questions has text and options", len(q))
}
