package services

import (
	"fmt"
	"strings"

	"neurolearn-backend/internal/models"
)

const jsonOnlyObject = "CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n"
const jsonOnlyArray = "CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n"

// writeLearnerLayer tailors tone and vocabulary to the learner profile.
func writeLearnerLayer(b *strings.Builder, learner *models.LearnerProfile) {
	if learner == nil {
		return
	}

	b.WriteString("Learner profile:\n")
	if learner.ReadingLevel != "" {
		b.WriteString(fmt.Sprintf("- Reading level: %s\n", learner.ReadingLevel))
	}
	switch learner.AgeGroup {
	case "child":
		b.WriteString("- Age group: child. Use short sentences, everyday words and friendly examples.\n")
	case "teen":
		b.WriteString("- Age group: teen. Use relatable examples and avoid talking down.\n")
	case "adult":
		b.WriteString("- Age group: adult.\n")
	}
	if len(learner.Interests) > 0 {
		b.WriteString(fmt.Sprintf("- Interests: %s. Draw analogies from these where natural.\n", strings.Join(learner.Interests, ", ")))
	}
	b.WriteString("\n")

	if learner.Language != "" && learner.Language != "en" {
		b.WriteString(fmt.Sprintf("Language: Respond entirely in %s, but keep JSON keys in English.\n\n", learner.Language))
	}
}

func writeContentLayer(b *strings.Builder, content string) {
	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")
}

func buildSimplifyPrompt(learner *models.LearnerProfile, title string, levels []string, content string) string {
	var b strings.Builder

	// Layer 1: Role
	b.WriteString("You are a patient teacher who rewrites difficult material so that anyone can understand it.\n\n")
	b.WriteString(jsonOnlyObject)

	// Layer 2: Task
	b.WriteString(fmt.Sprintf("Rewrite the content below at %d levels, in this exact order: %s.\n", len(levels), strings.Join(levels, ", ")))
	b.WriteString("Each level must be self-contained, keep the facts accurate, and get progressively more detailed and technical.\n")
	if title != "" {
		b.WriteString(fmt.Sprintf("The material is titled %q.\n", title))
	}
	b.WriteString("\n")

	// Layer 3: Learner
	writeLearnerLayer(&b, learner)

	// Layer 4: Schema
	b.WriteString(`JSON schema:
{"levels": [{"level": "string", "title": "string", "text": "string", "key_terms": [{"term": "string", "definition": "string"}]}]}

Include 2-5 key terms per level.
`)

	// Layer 5: Content
	writeContentLayer(&b, content)

	return b.String()
}

func buildExpandPrompt(learner *models.LearnerProfile, topic string, subtopics int) string {
	var b strings.Builder

	b.WriteString("You are a curious, knowledgeable guide who helps learners explore a topic in depth.\n\n")
	b.WriteString(jsonOnlyObject)

	b.WriteString(fmt.Sprintf("Expand the topic %q into an overview and exactly %d subtopics.\n", topic, subtopics))
	b.WriteString("Each subtopic needs a short summary and 2-3 guiding questions that invite the learner to think further.\n")
	b.WriteString("Finish with 3-5 related topics and one surprising but true fun fact.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema:
{"topic": "string", "overview": "string", "subtopics": [{"title": "string", "summary": "string", "guiding_questions": ["string"]}], "related_topics": ["string"], "fun_fact": "string"}
`)

	return b.String()
}

func buildQuizPrompt(learner *models.LearnerProfile, req models.QuizRequest, content string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assessor. Generate quiz questions based on the following content.\n\n")
	b.WriteString(jsonOnlyArray)

	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", req.NumQuestions))
	if req.IncludeTF {
		mcCount := req.NumQuestions * 7 / 10
		tfCount := req.NumQuestions - mcCount
		b.WriteString(fmt.Sprintf("Include %d true/false questions and %d multiple choice questions.\n", tfCount, mcCount))
	}

	b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	switch req.Difficulty {
	case "easy":
		b.WriteString("Easy = direct recall from text.\n")
	case "medium":
		b.WriteString("Medium = application of concepts.\n")
	case "hard":
		b.WriteString("Hard = analysis, synthesis, or inference beyond what is explicitly stated.\n")
	}
	b.WriteString("\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema per question:
{"question": "string", "type": "multiple_choice"|"true_false", "options": ["string"], "correct_index": int, "explanation": "string", "hint": "string", "difficulty": "easy"|"medium"|"hard", "topic": "string"}

For multiple_choice: exactly 4 options. For true_false: exactly 2 options ["True", "False"].
`)

	writeContentLayer(&b, content)

	return b.String()
}

func buildComprehensionPrompt(learner *models.LearnerProfile, req models.ComprehensionRequest, content string) string {
	var b strings.Builder

	b.WriteString("You are a reading specialist who writes reading-comprehension tests.\n\n")
	b.WriteString(jsonOnlyObject)

	b.WriteString(fmt.Sprintf("Write exactly %d questions about the passage below.\n", req.NumQuestions))
	b.WriteString("Mix multiple_choice questions (4 options, answer is the exact text of the correct option) with short_answer questions (answer is a model answer, rubric says what a good answer must mention).\n")
	b.WriteString("Cover main idea, details, vocabulary in context, and inference. Number questions from 1.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema:
{"passage_title": "string", "questions": [{"id": int, "question": "string", "kind": "multiple_choice"|"short_answer", "options": ["string"], "answer": "string", "rubric": "string"}]}
`)

	writeContentLayer(&b, content)

	return b.String()
}

type gradeItem struct {
	question models.ComprehensionQuestion
	response string
}

func buildGradePrompt(learner *models.LearnerProfile, items []gradeItem) string {
	var b strings.Builder

	b.WriteString("You are a fair, encouraging teacher grading short written answers.\n\n")
	b.WriteString(jsonOnlyArray)

	b.WriteString("Grade each learner response against the model answer and rubric. Score from 0 to 1 (partial credit allowed).\n")
	b.WriteString("Feedback must be one or two sentences addressed to the learner, naming what was right and what was missing.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema per result:
{"id": int, "score": number, "feedback": "string"}

`)

	for _, item := range items {
		b.WriteString(fmt.Sprintf("---QUESTION %d---\n", item.question.ID))
		b.WriteString(fmt.Sprintf("Question: %s\n", item.question.Question))
		b.WriteString(fmt.Sprintf("Model answer: %s\n", item.question.Answer))
		if item.question.Rubric != "" {
			b.WriteString(fmt.Sprintf("Rubric: %s\n", item.question.Rubric))
		}
		b.WriteString(fmt.Sprintf("Learner response: %s\n", item.response))
	}
	b.WriteString("---END---\n")

	return b.String()
}

func buildChallengePrompt(learner *models.LearnerProfile, category, difficulty string) string {
	var b strings.Builder

	b.WriteString("You design short critical-thinking challenges that make learners reason, not recall.\n\n")
	b.WriteString(jsonOnlyObject)

	b.WriteString(fmt.Sprintf("Create one %s challenge at %s difficulty.\n", strings.ReplaceAll(category, "_", " "), difficulty))
	switch category {
	case "logic":
		b.WriteString("The scenario should contain a puzzle that can be solved by deduction alone.\n")
	case "ethics":
		b.WriteString("The scenario should present a dilemma with reasonable arguments on more than one side.\n")
	case "problem_solving":
		b.WriteString("The scenario should describe a practical problem with constraints the learner must work within.\n")
	case "creative":
		b.WriteString("The scenario should invite an original idea or unusual use of familiar things.\n")
	case "analysis":
		b.WriteString("The scenario should include data or claims the learner must weigh and interpret.\n")
	}
	b.WriteString("Give 2-3 hints that nudge without revealing the answer, and a sensible time limit in seconds.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema:
{"title": "string", "scenario": "string", "prompt": "string", "category": "string", "difficulty": "string", "hints": ["string"], "time_limit_seconds": int}
`)

	return b.String()
}

func buildEvaluatePrompt(learner *models.LearnerProfile, challenge models.Challenge, response string) string {
	var b strings.Builder

	b.WriteString("You are a thoughtful coach evaluating a learner's answer to a critical-thinking challenge.\n\n")
	b.WriteString(jsonOnlyObject)

	b.WriteString("Score the reasoning from 0 to 100. Judge clarity, use of evidence, consideration of alternatives, and soundness of the conclusion.\n")
	b.WriteString("reasoning_level is one of: emerging, developing, proficient, advanced.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema:
{"score": int, "strengths": ["string"], "improvements": ["string"], "model_answer": "string", "reasoning_level": "string"}
`)

	b.WriteString("\n---CHALLENGE---\n")
	b.WriteString(fmt.Sprintf("Title: %s\nScenario: %s\nPrompt: %s\n", challenge.Title, challenge.Scenario, challenge.Prompt))
	b.WriteString("---LEARNER RESPONSE---\n")
	b.WriteString(response)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildIllustrationPrompt(learner *models.LearnerProfile, topic string, count int) string {
	var b strings.Builder

	b.WriteString("You write prompts for an image model that draws clear educational illustrations.\n\n")
	b.WriteString(jsonOnlyArray)

	b.WriteString(fmt.Sprintf("Write exactly %d image prompts that together explain %q visually.\n", count, topic))
	b.WriteString("Each prompt describes one scene in a single paragraph: subject, labels to show, composition, and a clean flat illustration style. No text-heavy diagrams.\n\n")

	writeLearnerLayer(&b, learner)

	b.WriteString(`JSON schema:
["string"]
`)

	return b.String()
}
