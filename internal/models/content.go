package models

const (
	SourceText    = "text"
	SourceFile    = "file"
	SourceYouTube = "youtube"
)

// ContentSource names where learning material comes from. Exactly one of
// Text, FilePath or URL is used, selected by Type.
type ContentSource struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FilePath string `json:"-"`
	URL      string `json:"url,omitempty"`
}

type ResolvedContent struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Truncated bool   `json:"truncated"`
}

type YouTubeContentRequest struct {
	URL string `json:"url"`
}

type YouTubeMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelName  string `json:"channel_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration_seconds"`
}
