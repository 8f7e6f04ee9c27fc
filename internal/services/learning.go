package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neurolearn-backend/internal/extract"
	"neurolearn-backend/internal/models"
)

// ResultCache stores decoded results by kind and prompt.
type ResultCache interface {
	Get(ctx context.Context, kind, prompt string, dst any) bool
	Set(ctx context.Context, kind, prompt string, v any)
}

type ActivityRecorder interface {
	Record(ctx context.Context, a *models.Activity) error
}

var DefaultLevels = []string{"beginner", "intermediate", "advanced"}

const (
	maxLevels             = 5
	defaultQuizQuestions  = 5
	maxQuizQuestions      = 20
	defaultComprehension  = 5
	maxComprehension      = 15
	defaultIllustrations  = 2
	maxIllustrations      = 4
	defaultChallengeTime  = 300
	shortAnswerPassMark   = 0.7
	inputSummaryMaxLength = 120
)

type LearningService struct {
	text        TextGenerator
	images      ImageGenerator
	cache       ResultCache
	activities  ActivityRecorder
	maxAttempts int
	logger      *zap.Logger
}

func NewLearningService(
	text TextGenerator,
	images ImageGenerator,
	cache ResultCache,
	activities ActivityRecorder,
	maxAttempts int,
	logger *zap.Logger,
) *LearningService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &LearningService{
		text:        text,
		images:      images,
		cache:       cache,
		activities:  activities,
		maxAttempts: maxAttempts,
		logger:      logger.Named("learning"),
	}
}

// Simplify rewrites content at each requested level.
func (s *LearningService) Simplify(ctx context.Context, learner *models.LearnerProfile, req models.SimplifyRequest) (*models.SimplifiedContent, error) {
	content, _ := TruncateContent(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Fields: map[string]string{"content": "Content is required"}}
	}

	levels, err := normalizeLevels(req.Levels)
	if err != nil {
		return nil, err
	}

	prompt := buildSimplifyPrompt(learner, req.Title, levels, content)
	check := func(v *models.SimplifiedContent) error {
		if len(v.Levels) != len(levels) {
			return fmt.Errorf("expected %d levels, got %d", len(levels), len(v.Levels))
		}
		return nil
	}

	result, err := generateCached(ctx, s, "simplify", prompt, check)
	if err != nil {
		return nil, err
	}

	for i := range result.Levels {
		if result.Levels[i].Level == "" {
			result.Levels[i].Level = levels[i]
		}
	}

	s.record(ctx, learner, models.ActivitySimplify, firstNonEmpty(req.Title, content), result, nil)
	return result, nil
}

// ExpandTopic explores a topic as an overview plus subtopics.
func (s *LearningService) ExpandTopic(ctx context.Context, learner *models.LearnerProfile, req models.ExpandTopicRequest) (*models.TopicExpansion, error) {
	topic := strings.TrimSpace(req.Topic)
	fields := map[string]string{}
	if topic == "" {
		fields["topic"] = "Topic is required"
	}
	depth := req.Depth
	if depth == 0 {
		depth = 2
	}
	if depth < 1 || depth > 3 {
		fields["depth"] = "Depth must be between 1 and 3"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	subtopics := 1 + 2*depth
	prompt := buildExpandPrompt(learner, topic, subtopics)

	result, err := generateCached[models.TopicExpansion](ctx, s, "expand", prompt, nil)
	if err != nil {
		return nil, err
	}

	if result.Topic == "" {
		result.Topic = topic
	}
	if len(result.Subtopics) > subtopics {
		result.Subtopics = result.Subtopics[:subtopics]
	}

	s.record(ctx, learner, models.ActivityExpand, topic, result, nil)
	return result, nil
}

// GenerateQuiz builds a quiz over the given content. Malformed questions are
// dropped or repaired; a quiz with no usable question is a shape failure.
func (s *LearningService) GenerateQuiz(ctx context.Context, learner *models.LearnerProfile, req models.QuizRequest) (*models.Quiz, error) {
	content, _ := TruncateContent(req.Content)
	fields := map[string]string{}
	if strings.TrimSpace(content) == "" {
		fields["content"] = "Content is required"
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = defaultQuizQuestions
	}
	if req.NumQuestions < 1 || req.NumQuestions > maxQuizQuestions {
		fields["num_questions"] = fmt.Sprintf("Must be between 1 and %d", maxQuizQuestions)
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if !slices.Contains([]string{"easy", "medium", "hard"}, req.Difficulty) {
		fields["difficulty"] = "Must be easy, medium or hard"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	prompt := buildQuizPrompt(learner, req, content)

	questions, err := generateCached[models.QuizQuestions](ctx, s, "quiz", prompt, nil)
	if err != nil {
		return nil, err
	}

	valid := validateQuizQuestions(*questions)
	if len(valid) > req.NumQuestions {
		valid = valid[:req.NumQuestions]
	}

	quiz := &models.Quiz{Title: firstNonEmpty(req.Title, "Quiz"), Questions: valid}
	s.record(ctx, learner, models.ActivityQuiz, firstNonEmpty(req.Title, content), quiz, nil)
	return quiz, nil
}

// GenerateComprehensionTest writes a reading-comprehension test for content.
func (s *LearningService) GenerateComprehensionTest(ctx context.Context, learner *models.LearnerProfile, req models.ComprehensionRequest) (*models.ComprehensionTest, error) {
	content, _ := TruncateContent(req.Content)
	fields := map[string]string{}
	if strings.TrimSpace(content) == "" {
		fields["content"] = "Content is required"
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = defaultComprehension
	}
	if req.NumQuestions < 1 || req.NumQuestions > maxComprehension {
		fields["num_questions"] = fmt.Sprintf("Must be between 1 and %d", maxComprehension)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	prompt := buildComprehensionPrompt(learner, req, content)

	test, err := generateCached[models.ComprehensionTest](ctx, s, "comprehension", prompt, nil)
	if err != nil {
		return nil, err
	}

	if len(test.Questions) > req.NumQuestions {
		test.Questions = test.Questions[:req.NumQuestions]
	}
	renumberQuestions(test.Questions)
	if test.PassageTitle == "" {
		test.PassageTitle = req.Title
	}

	s.record(ctx, learner, models.ActivityComprehension, firstNonEmpty(req.Title, content), test, nil)
	return test, nil
}

// GradeComprehension grades multiple-choice answers locally and asks the
// model to grade short answers.
func (s *LearningService) GradeComprehension(ctx context.Context, learner *models.LearnerProfile, req models.GradeRequest) (*models.GradeResult, error) {
	if err := req.Test.Validate(); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"test": err.Error()}}
	}
	if err := req.Test.ValidateIDs(); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"test": err.Error()}}
	}

	responses := make(map[int]string, len(req.Answers))
	for _, a := range req.Answers {
		responses[a.ID] = strings.TrimSpace(a.Response)
	}

	results := make([]models.QuestionResult, len(req.Test.Questions))
	var pending []gradeItem
	pendingIdx := map[int]int{}

	for i, q := range req.Test.Questions {
		response := responses[q.ID]
		results[i] = models.QuestionResult{ID: q.ID}

		switch {
		case response == "":
			results[i].Feedback = "No answer given."
		case q.Kind == "multiple_choice":
			if strings.EqualFold(response, strings.TrimSpace(q.Answer)) {
				results[i].Correct = true
				results[i].Score = 1
				results[i].Feedback = "Correct!"
			} else {
				results[i].Feedback = fmt.Sprintf("The correct answer is %q.", q.Answer)
			}
		default:
			pendingIdx[q.ID] = i
			pending = append(pending, gradeItem{question: q, response: response})
		}
	}

	if len(pending) > 0 {
		prompt := buildGradePrompt(learner, pending)
		check := func(v *models.ShortAnswerGrades) error {
			seen := map[int]bool{}
			for _, g := range *v {
				seen[g.ID] = true
			}
			for id := range pendingIdx {
				if !seen[id] {
					return fmt.Errorf("no grade returned for question %d", id)
				}
			}
			return nil
		}

		grades, err := generateCached(ctx, s, "grade", prompt, check)
		if err != nil {
			return nil, err
		}

		for _, g := range *grades {
			i, ok := pendingIdx[g.ID]
			if !ok {
				continue
			}
			results[i].Score = g.Score
			results[i].Correct = g.Score >= shortAnswerPassMark
			results[i].Feedback = g.Feedback
		}
	}

	total := 0.0
	for _, r := range results {
		total += r.Score
	}
	percent := math.Round(total/float64(len(results))*1000) / 10

	result := &models.GradeResult{Results: results, ScorePercent: percent}
	s.record(ctx, learner, models.ActivityGrade, req.Test.PassageTitle, result, &percent)
	return result, nil
}

// GenerateChallenge creates a fresh critical-thinking challenge. Challenges
// are never served from cache.
func (s *LearningService) GenerateChallenge(ctx context.Context, learner *models.LearnerProfile, req models.ChallengeRequest) (*models.Challenge, error) {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = "analysis"
	}
	difficulty := strings.ToLower(strings.TrimSpace(req.Difficulty))
	if difficulty == "" {
		difficulty = "medium"
	}

	fields := map[string]string{}
	if !slices.Contains(models.ChallengeCategories, category) {
		fields["category"] = "Must be one of " + strings.Join(models.ChallengeCategories, ", ")
	}
	if !slices.Contains([]string{"easy", "medium", "hard"}, difficulty) {
		fields["difficulty"] = "Must be easy, medium or hard"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	prompt := buildChallengePrompt(learner, category, difficulty)
	challenge, err := generateJSON[models.Challenge](ctx, s, "challenge", prompt, nil)
	if err != nil {
		return nil, err
	}

	if challenge.Category == "" {
		challenge.Category = category
	}
	if challenge.Difficulty == "" {
		challenge.Difficulty = difficulty
	}
	if challenge.TimeLimitSeconds <= 0 {
		challenge.TimeLimitSeconds = defaultChallengeTime
	}

	s.record(ctx, learner, models.ActivityChallenge, challenge.Title, challenge, nil)
	return challenge, nil
}

// EvaluateChallenge scores a learner's response to a challenge.
func (s *LearningService) EvaluateChallenge(ctx context.Context, learner *models.LearnerProfile, req models.EvaluateRequest) (*models.ChallengeFeedback, error) {
	fields := map[string]string{}
	if err := req.Challenge.Validate(); err != nil {
		fields["challenge"] = err.Error()
	}
	response := strings.TrimSpace(req.Response)
	if response == "" {
		fields["response"] = "Response is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	prompt := buildEvaluatePrompt(learner, req.Challenge, response)
	feedback, err := generateCached[models.ChallengeFeedback](ctx, s, "evaluate", prompt, nil)
	if err != nil {
		return nil, err
	}

	score := float64(feedback.Score)
	s.record(ctx, learner, models.ActivityEvaluate, req.Challenge.Title, feedback, &score)
	return feedback, nil
}

// Illustrate asks the text model for image prompts, then renders them.
func (s *LearningService) Illustrate(ctx context.Context, learner *models.LearnerProfile, req models.IllustrateRequest) (*models.IllustrationSet, error) {
	topic := strings.TrimSpace(req.Topic)
	fields := map[string]string{}
	if topic == "" {
		fields["topic"] = "Topic is required"
	}
	count := req.Count
	if count == 0 {
		count = defaultIllustrations
	}
	if count < 1 || count > maxIllustrations {
		fields["count"] = fmt.Sprintf("Must be between 1 and %d", maxIllustrations)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if s.images == nil {
		return nil, &GenerationError{Op: "illustrate", Attempts: 0, Err: errors.New("image generation is not configured")}
	}

	prompt := buildIllustrationPrompt(learner, topic, count)
	check := func(v *models.ImagePrompts) error {
		if len(*v) < count {
			return fmt.Errorf("expected %d image prompts, got %d", count, len(*v))
		}
		return nil
	}

	prompts, err := generateJSON(ctx, s, "illustrate", prompt, check)
	if err != nil {
		return nil, err
	}

	images, err := s.images.GenerateImages(ctx, (*prompts)[:count])
	if err != nil {
		return nil, &GenerationError{Op: "illustrate", Attempts: 1, Err: err}
	}

	set := &models.IllustrationSet{Topic: topic, Images: images}
	s.record(ctx, learner, models.ActivityIllustrate, topic, set, nil)
	return set, nil
}

// generateCached serves kind/prompt from the cache when possible and stores
// fresh results.
func generateCached[T any](ctx context.Context, s *LearningService, kind, prompt string, check func(*T) error) (*T, error) {
	if s.cache != nil {
		var cached T
		if s.cache.Get(ctx, kind, prompt, &cached) {
			s.logger.Debug("cache hit", zap.String("kind", kind))
			return &cached, nil
		}
	}

	value, err := generateJSON(ctx, s, kind, prompt, check)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, kind, prompt, value)
	}
	return value, nil
}

// generateJSON calls the text model and salvages a T from its answer. A
// response that cannot be salvaged locally triggers a fresh call, up to
// maxAttempts calls in total. Transport errors are not retried here.
func generateJSON[T any](ctx context.Context, s *LearningService, op, prompt string, check func(*T) error) (*T, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attempts = attempt
		raw, err := s.text.GenerateText(ctx, prompt)
		if err != nil {
			return nil, &GenerationError{Op: op, Attempts: attempt, Err: err}
		}

		value, err := salvage[T](raw, s.logger.With(zap.String("op", op), zap.Int("attempt", attempt)))
		if err == nil && check != nil {
			if checkErr := check(&value); checkErr != nil {
				payload, _ := extract.Span(raw)
				err = &extract.ShapeError{Raw: raw, Payload: payload, Err: checkErr}
			}
		}
		if err == nil {
			if attempt > 1 {
				s.logger.Info("ai response recovered by retry", zap.String("op", op), zap.Int("attempt", attempt))
			}
			return &value, nil
		}

		lastErr = err
		s.logger.Warn("ai response rejected",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.String("kind", errorKind(err)),
			zap.Int("raw_length", len(raw)),
			zap.String("payload", preview(payloadOf(err))),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &GenerationError{Op: op, Attempts: attempts, Err: lastErr}
}

// salvage decodes raw with the greedy span first. Only a decode failure is
// worth a local second look: first with the balanced span, then with repair.
func salvage[T any](raw string, logger *zap.Logger) (T, error) {
	value, err := extract.ExtractAndDecode[T](raw)
	if err == nil || !errors.Is(err, extract.ErrDecode) {
		return value, err
	}

	if v, balancedErr := extract.ExtractAndDecode[T](raw, extract.WithStrategy(extract.Balanced)); balancedErr == nil {
		logger.Info("ai response salvaged", zap.String("strategy", extract.Balanced.String()))
		return v, nil
	}

	if v, repairErr := extract.ExtractAndDecode[T](raw, extract.WithRepair()); repairErr == nil {
		logger.Info("ai response salvaged", zap.String("strategy", "repair"))
		return v, nil
	}

	return value, err
}

func (s *LearningService) record(ctx context.Context, learner *models.LearnerProfile, kind, input string, result any, score *float64) {
	if s.activities == nil || learner == nil || learner.LearnerID == uuid.Nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("activity encode failed", zap.String("kind", kind), zap.Error(err))
		return
	}

	activity := &models.Activity{
		LearnerID:    learner.LearnerID,
		Kind:         kind,
		InputSummary: summarizeInput(input),
		ResultJSON:   data,
		Score:        score,
	}
	if err := s.activities.Record(ctx, activity); err != nil {
		s.logger.Warn("activity record failed",
			zap.String("kind", kind),
			zap.Stringer("learner_id", learner.LearnerID),
			zap.Error(err),
		)
	}
}

func normalizeLevels(levels []string) ([]string, error) {
	if len(levels) == 0 {
		return DefaultLevels, nil
	}
	if len(levels) > maxLevels {
		return nil, &ValidationError{Fields: map[string]string{"levels": fmt.Sprintf("At most %d levels", maxLevels)}}
	}

	out := make([]string, 0, len(levels))
	for _, l := range levels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			return nil, &ValidationError{Fields: map[string]string{"levels": "Levels must not be blank"}}
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// renumberQuestions assigns 1..n when ids are missing or repeated.
func renumberQuestions(questions []models.ComprehensionQuestion) {
	seen := map[int]bool{}
	ok := true
	for _, q := range questions {
		if q.ID <= 0 || seen[q.ID] {
			ok = false
			break
		}
		seen[q.ID] = true
	}
	if ok {
		return
	}
	for i := range questions {
		questions[i].ID = i + 1
	}
}

func validateQuizQuestions(questions []models.QuizQuestion) []models.QuizQuestion {
	var valid []models.QuizQuestion
	for _, q := range questions {
		if q.Question == "" || len(q.Options) == 0 {
			continue
		}
		if q.Type == "true_false" && len(q.Options) != 2 {
			q.Options = []string{"True", "False"}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			q.CorrectIndex = 0
		}
		valid = append(valid, q)
	}
	return valid
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, extract.ErrExtraction):
		return "extraction"
	case errors.Is(err, extract.ErrDecode):
		return "decode"
	case errors.Is(err, extract.ErrShape):
		return "shape"
	default:
		return "other"
	}
}

func payloadOf(err error) string {
	var decodeErr *extract.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Payload
	}
	var shapeErr *extract.ShapeError
	if errors.As(err, &shapeErr) {
		return shapeErr.Payload
	}
	return ""
}

func preview(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func summarizeInput(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= inputSummaryMaxLength {
		return s
	}
	return string(r[:inputSummaryMaxLength]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
