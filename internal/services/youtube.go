package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"neurolearn-backend/internal/models"
)

var ErrInvalidYouTubeURL = errors.New("invalid YouTube URL")

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/)|youtu\.be/)([\w-]{11})`)

var transcriptLanguages = []string{"en", "en-US", "en-GB"}

// ParseYouTubeID returns the 11-character video id from a watch, embed,
// shorts, live or youtu.be URL.
func ParseYouTubeID(rawURL string) (string, error) {
	m := youtubeIDPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if len(m) < 2 {
		return "", ErrInvalidYouTubeURL
	}
	return m[1], nil
}

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
	logger        *zap.Logger
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService(logger *zap.Logger) *YouTubeService {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &YouTubeService{
		httpClient:    httpClient,
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{HTTPClient: httpClient},
		logger:        logger.Named("youtube"),
	}
}

// Metadata looks up the video title and channel. Lookup failures fall back to
// placeholder values so a transcript can still be used.
func (s *YouTubeService) Metadata(ctx context.Context, videoID string) models.YouTubeMetadata {
	meta := models.YouTubeMetadata{
		VideoID:      videoID,
		Title:        "YouTube Video",
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
	}

	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		s.logger.Warn("video metadata lookup failed", zap.String("video_id", videoID), zap.Error(err))
		return meta
	}

	if video.Title != "" {
		meta.Title = video.Title
	}
	meta.ChannelName = video.Author
	meta.Duration = int(video.Duration.Seconds())
	if len(video.Thumbnails) > 0 {
		meta.ThumbnailURL = video.Thumbnails[len(video.Thumbnails)-1].URL
	}
	return meta
}

// GetTranscript prefers English captions, then any language, then the
// legacy timedtext endpoint.
func (s *YouTubeService) GetTranscript(ctx context.Context, videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, transcriptLanguages)
	if err != nil {
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			legacy, legacyErr := s.getTranscriptViaTimedText(ctx, videoID)
			if legacyErr == nil {
				return legacy, nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, legacyErr)
		}
	}

	parts := make([]string, 0, len(transcript.Entries))
	for _, entry := range transcript.Entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("subtitle track is empty")
	}

	return strings.Join(parts, " "), nil
}

func (s *YouTubeService) getTranscriptViaTimedText(ctx context.Context, videoID string) (string, error) {
	pageHTML, err := s.fetch(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	s.logger.Debug("timedtext fallback", zap.String("video_id", videoID), zap.Int("page_bytes", len(pageHTML)))

	captionURL, err := extractCaptionURL(string(pageHTML))
	if err != nil {
		return "", err
	}

	captions, err := s.fetch(ctx, captionURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}

	transcript, err := parseCaptionsXML(captions)
	if err != nil {
		return "", fmt.Errorf("failed to parse captions XML: %w", err)
	}
	return transcript, nil
}

func (s *YouTubeService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var (
	captionTracksPattern = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	baseURLPattern       = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
)

func extractCaptionURL(pageHTML string) (string, error) {
	m := captionTracksPattern.FindStringSubmatch(pageHTML)
	if len(m) < 2 {
		return "", errors.New("no captions available for this video")
	}

	u := baseURLPattern.FindStringSubmatch(m[1])
	if len(u) < 2 {
		return "", errors.New("caption track found but baseUrl missing")
	}

	return strings.NewReplacer(`\u0026`, "&", `\/`, "/").Replace(u[1]), nil
}

func parseCaptionsXML(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var parts []string
	for _, t := range tt.Texts {
		if text := strings.TrimSpace(html.UnescapeString(t.Text)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("captions XML empty")
	}

	return strings.Join(parts, " "), nil
}
