package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"neurolearn-backend/internal/models"
)

// MaxContentChars caps learning material before it is put in a prompt.
const MaxContentChars = 60000

type transcriptSource interface {
	GetTranscript(ctx context.Context, videoID string) (string, error)
	Metadata(ctx context.Context, videoID string) models.YouTubeMetadata
}

type fileSource interface {
	ExtractTextFromPath(path string) (string, error)
}

type ContentSourceService struct {
	files   fileSource
	youtube transcriptSource
}

func NewContentSourceService(files *FileExtractService, youtube *YouTubeService) *ContentSourceService {
	return &ContentSourceService{files: files, youtube: youtube}
}

// Resolve turns a content source into prompt-ready text.
func (s *ContentSourceService) Resolve(ctx context.Context, src models.ContentSource) (*models.ResolvedContent, error) {
	var text, title string

	switch src.Type {
	case models.SourceText:
		text = strings.TrimSpace(src.Text)
		if text == "" {
			return nil, &ValidationError{Fields: map[string]string{"text": "Text is required"}}
		}

	case models.SourceFile:
		extracted, err := s.files.ExtractTextFromPath(src.FilePath)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFile) {
				return nil, &ValidationError{Fields: map[string]string{"file": "Supported formats are " + strings.Join(SupportedExtensions, ", ")}}
			}
			return nil, &ValidationError{Fields: map[string]string{"file": err.Error()}}
		}
		text = extracted

	case models.SourceYouTube:
		videoID, err := ParseYouTubeID(src.URL)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"url": "Invalid YouTube URL"}}
		}
		transcript, err := s.youtube.GetTranscript(ctx, videoID)
		if err != nil {
			return nil, &NotFoundError{Message: "No transcript is available for this video"}
		}
		text = transcript
		title = s.youtube.Metadata(ctx, videoID).Title

	default:
		return nil, &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("Unknown content source %q", src.Type)}}
	}

	text, truncated := TruncateContent(text)
	return &models.ResolvedContent{
		Source:    src.Type,
		Title:     title,
		Text:      text,
		WordCount: len(strings.Fields(text)),
		Truncated: truncated,
	}, nil
}

// TruncateContent cuts s to MaxContentChars runes, preferring the last
// whitespace before the limit.
func TruncateContent(s string) (string, bool) {
	r := []rune(s)
	if len(r) <= MaxContentChars {
		return s, false
	}

	cut := string(r[:MaxContentChars])
	if i := strings.LastIndexAny(cut, " \n\t"); i > MaxContentChars/2 {
		cut = cut[:i]
	}
	return cut, true
}
