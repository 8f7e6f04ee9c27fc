package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	imagen "google.golang.org/genai"

	"neurolearn-backend/internal/models"
)

// ImageGenerator renders one illustration per prompt.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompts []string) ([]models.Illustration, error)
}

// renderFunc produces the image bytes and MIME type for one prompt.
type renderFunc func(ctx context.Context, prompt string) ([]byte, string, error)

type ImageService struct {
	render      renderFunc
	storagePath string
	concurrency int
	logger      *zap.Logger
}

func NewImageService(ctx context.Context, apiKey, modelName, storagePath string, concurrency int, logger *zap.Logger) (*ImageService, error) {
	client, err := imagen.NewClient(ctx, &imagen.ClientConfig{
		APIKey:  apiKey,
		Backend: imagen.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image client: %w", err)
	}

	render := func(ctx context.Context, prompt string) ([]byte, string, error) {
		resp, err := client.Models.GenerateImages(ctx, modelName, prompt, &imagen.GenerateImagesConfig{
			NumberOfImages: 1,
		})
		if err != nil {
			return nil, "", fmt.Errorf("image API error: %w", err)
		}
		for _, img := range resp.GeneratedImages {
			if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
				continue
			}
			return img.Image.ImageBytes, img.Image.MIMEType, nil
		}
		return nil, "", fmt.Errorf("image API returned no image for prompt")
	}

	return newImageService(render, storagePath, concurrency, logger), nil
}

func newImageService(render renderFunc, storagePath string, concurrency int, logger *zap.Logger) *ImageService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImageService{
		render:      render,
		storagePath: storagePath,
		concurrency: concurrency,
		logger:      logger.Named("images"),
	}
}

// GenerateImages renders all prompts concurrently. Results keep the order of
// prompts; the first failure cancels the remaining calls.
func (s *ImageService) GenerateImages(ctx context.Context, prompts []string) ([]models.Illustration, error) {
	dir := filepath.Join(s.storagePath, "illustrations")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create illustrations dir: %w", err)
	}

	results := make([]models.Illustration, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, prompt := range prompts {
		g.Go(func() error {
			data, mimeType, err := s.render(gctx, prompt)
			if err != nil {
				return fmt.Errorf("illustration %d: %w", i+1, err)
			}
			if mimeType == "" {
				mimeType = "image/png"
			}

			name := uuid.New().String() + imageExt(mimeType)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return fmt.Errorf("failed to store illustration %d: %w", i+1, err)
			}

			results[i] = models.Illustration{
				Prompt:   prompt,
				URL:      "/files/illustrations/" + name,
				MIMEType: mimeType,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("illustrations stored", zap.Int("count", len(results)))
	return results, nil
}

func imageExt(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
