package models

import (
	"errors"
	"fmt"
	"strings"
)

// Simplification

type SimplifyRequest struct {
	Content string   `json:"content"`
	Title   string   `json:"title"`
	Levels  []string `json:"levels"`
}

type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type SimplifiedLevel struct {
	Level    string    `json:"level"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	KeyTerms []KeyTerm `json:"key_terms"`
}

type SimplifiedContent struct {
	Levels []SimplifiedLevel `json:"levels"`
}

func (s *SimplifiedContent) Validate() error {
	if len(s.Levels) == 0 {
		return errors.New("levels must not be empty")
	}
	for i, l := range s.Levels {
		if strings.TrimSpace(l.Text) == "" {
			return fmt.Errorf("level %d has empty text", i)
		}
	}
	return nil
}

// Topic expansion

type ExpandTopicRequest struct {
	Topic string `json:"topic"`
	Depth int    `json:"depth"`
}

type Subtopic struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	GuidingQuestions []string `json:"guiding_questions"`
}

type TopicExpansion struct {
	Topic         string     `json:"topic"`
	Overview      string     `json:"overview"`
	Subtopics     []Subtopic `json:"subtopics"`
	RelatedTopics []string   `json:"related_topics"`
	FunFact       string     `json:"fun_fact"`
}

func (t *TopicExpansion) Validate() error {
	if strings.TrimSpace(t.Overview) == "" {
		return errors.New("overview must not be empty")
	}
	if len(t.Subtopics) == 0 {
		return errors.New("subtopics must not be empty")
	}
	for i, st := range t.Subtopics {
		if strings.TrimSpace(st.Title) == "" {
			return fmt.Errorf("subtopic %d has no title", i)
		}
	}
	return nil
}

// Comprehension

type ComprehensionRequest struct {
	Content      string `json:"content"`
	Title        string `json:"title"`
	NumQuestions int    `json:"num_questions"`
}

type ComprehensionQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Kind     string   `json:"kind"` // "multiple_choice" | "short_answer"
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer"`
	Rubric   string   `json:"rubric,omitempty"`
}

type ComprehensionTest struct {
	PassageTitle string                  `json:"passage_title"`
	Questions    []ComprehensionQuestion `json:"questions"`
}

func (c *ComprehensionTest) Validate() error {
	if len(c.Questions) == 0 {
		return errors.New("questions must not be empty")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d has no text", i)
		}
		switch q.Kind {
		case "multiple_choice":
			if len(q.Options) < 2 {
				return fmt.Errorf("question %d needs at least two options", i)
			}
			if !containsFold(q.Options, q.Answer) {
				return fmt.Errorf("question %d answer %q is not one of its options", i, q.Answer)
			}
		case "short_answer":
		default:
			return fmt.Errorf("question %d has unknown kind %q", i, q.Kind)
		}
	}
	return nil
}

// ValidateIDs requires positive, unique question ids. Answers and grades are
// matched to questions by id, so a test submitted for grading must pass it.
// Generated tests are renumbered instead.
func (c *ComprehensionTest) ValidateIDs() error {
	seen := make(map[int]bool, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID <= 0 {
			return fmt.Errorf("question %d has no positive id", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("question id %d is repeated", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

type ComprehensionAnswer struct {
	ID       int    `json:"id"`
	Response string `json:"response"`
}

type GradeRequest struct {
	Test    ComprehensionTest     `json:"test"`
	Answers []ComprehensionAnswer `json:"answers"`
}

type QuestionResult struct {
	ID       int     `json:"id"`
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

type GradeResult struct {
	Results      []QuestionResult `json:"results"`
	ScorePercent float64          `json:"score_percent"`
}

// ShortAnswerGrades is the array the model returns when grading free text.
type ShortAnswerGrades []QuestionResult

func (g ShortAnswerGrades) Validate() error {
	for _, r := range g {
		if r.Score < 0 || r.Score > 1 {
			return fmt.Errorf("question %d score %.2f out of range [0,1]", r.ID, r.Score)
		}
	}
	return nil
}

// SparkIQ challenges

var ChallengeCategories = []string{"logic", "ethics", "problem_solving", "creative", "analysis"}

type ChallengeRequest struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

type Challenge struct {
	Title            string   `json:"title"`
	Scenario         string   `json:"scenario"`
	Prompt           string   `json:"prompt"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Hints            []string `json:"hints"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
}

func (c *Challenge) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return errors.New("title must not be empty")
	case strings.TrimSpace(c.Scenario) == "":
		return errors.New("scenario must not be empty")
	case strings.TrimSpace(c.Prompt) == "":
		return errors.New("prompt must not be empty")
	}
	return nil
}

type EvaluateRequest struct {
	Challenge Challenge `json:"challenge"`
	Response  string    `json:"response"`
}

type ChallengeFeedback struct {
	Score          int      `json:"score"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	ModelAnswer    string   `json:"model_answer"`
	ReasoningLevel string   `json:"reasoning_level"`
}

func (f *ChallengeFeedback) Validate() error {
	if f.Score < 0 || f.Score > 100 {
		return fmt.Errorf("score %d out of range [0,100]", f.Score)
	}
	return nil
}

// Illustrations

type IllustrateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ImagePrompts is the array of image descriptions requested from the text model.
type ImagePrompts []string

func (p ImagePrompts) Validate() error {
	if len(p) == 0 {
		return errors.New("no image prompts returned")
	}
	for i, s := range p {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("image prompt %d is empty", i)
		}
	}
	return nil
}

type Illustration struct {
	Prompt   string `json:"prompt"`
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
}

type IllustrationSet struct {
	Topic  string         `json:"topic"`
	Images []Illustration `json:"images"`
}

func containsFold(options []string, s string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
