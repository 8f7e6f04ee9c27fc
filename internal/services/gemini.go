package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TextGenerator sends a prompt to a text model and returns its raw answer.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
	logger   *zap.Logger
}

func NewGeminiService(
	ctx context.Context,
	apiKey string,
	modelName string,
	temperature float64,
	concurrentReqs int,
	logger *zap.Logger,
) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(temperature))
	model.SetTopP(0.95)

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: newRateBucket(concurrentReqs),
		logger:   logger.Named("gemini"),
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// GenerateText returns the concatenated text parts of the first response.
// An empty answer is returned as "" without error; callers decide whether
// that is usable.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := acquireRate(ctx, s.rateChan); err != nil {
		return "", err
	}
	defer releaseRate(s.rateChan)

	start := time.Now()
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("gemini stopped early",
				zap.Int("candidate", i),
				zap.String("finish_reason", cand.FinishReason.String()),
				zap.Int32("token_count", cand.TokenCount),
			)
		}
	}

	text := extractText(resp)
	s.logger.Debug("gemini response",
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if text == "" {
		s.logger.Warn("gemini returned empty text")
	}

	return text, nil
}

func newRateBucket(size int) chan struct{} {
	if size < 1 {
		size = 1
	}
	rateChan := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		rateChan <- struct{}{}
	}
	return rateChan
}

// acquireRate blocks until a rate slot is available
func acquireRate(ctx context.Context, rateChan chan struct{}) error {
	select {
	case <-rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func releaseRate(rateChan chan struct{}) {
	rateChan <- struct{}{}
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
