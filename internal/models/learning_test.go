package models

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		v       interface{ Validate() error }
		wantErr bool
	}{
		{"simplified ok", &SimplifiedContent{Levels: []SimplifiedLevel{{Level: "beginner", Text: "x"}}}, false},
		{"simplified blank text", &SimplifiedContent{Levels: []SimplifiedLevel{{Level: "beginner", Text: "  "}}}, true},
		{"expansion without subtopics", &TopicExpansion{Overview: "x"}, true},
		{"expansion ok", &TopicExpansion{Overview: "x", Subtopics: []Subtopic{{Title: "a"}}}, false},
		{"quiz empty", QuizQuestions{}, true},
		{"quiz one usable", QuizQuestions{{Question: ""}, {Question: "q", Options: []string{"a"}}}, false},
		{"comprehension answer not in options", &ComprehensionTest{Questions: []ComprehensionQuestion{
			{Question: "q", Kind: "multiple_choice", Options: []string{"a", "b"}, Answer: "c"},
		}}, true},
		{"comprehension answer case-insensitive", &ComprehensionTest{Questions: []ComprehensionQuestion{
			{Question: "q", Kind: "multiple_choice", Options: []string{"Green", "Red"}, Answer: "green"},
		}}, false},
		{"comprehension unknown kind", &ComprehensionTest{Questions: []ComprehensionQuestion{{Question: "q", Kind: "essay"}}}, true},
		{"grade out of range", ShortAnswerGrades{{ID: 1, Score: 1.5}}, true},
		{"challenge missing prompt", &Challenge{Title: "t", Scenario: "s"}, true},
		{"feedback negative", &ChallengeFeedback{Score: -1}, true},
		{"feedback ok", &ChallengeFeedback{Score: 100}, false},
		{"image prompts blank", ImagePrompts{"a", " "}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.v.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestComprehensionTest_ValidateIDs(t *testing.T) {
	q := func(id int) ComprehensionQuestion {
		return ComprehensionQuestion{ID: id, Question: "q", Kind: "short_answer"}
	}

	tests := []struct {
		name    string
		ids     []int
		wantErr bool
	}{
		{"unique", []int{1, 2, 3}, false},
		{"not sequential", []int{4, 9}, false},
		{"repeated", []int{1, 1}, true},
		{"zero", []int{0, 1}, true},
		{"negative", []int{-2}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			test := &ComprehensionTest{}
			for _, id := range tc.ids {
				test.Questions = append(test.Questions, q(id))
			}
			err := test.ValidateIDs()
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateIDs() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
