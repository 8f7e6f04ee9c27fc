package services

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"neurolearn-backend/internal/models"
)

func TestParseYouTubeID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  https://www.youtube.com/live/dQw4w9WgXcQ  ", "dQw4w9WgXcQ", false},
		{"https://vimeo.com/123456", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseYouTubeID(tc.url)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseYouTubeID(%q) error = %v, wantErr %v", tc.url, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseYouTubeID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

type stubTranscripts struct {
	transcript string
	err        error
	lastID     string
}

func (s *stubTranscripts) GetTranscript(ctx context.Context, videoID string) (string, error) {
	s.lastID = videoID
	return s.transcript, s.err
}

func (s *stubTranscripts) Metadata(ctx context.Context, videoID string) models.YouTubeMetadata {
	return models.YouTubeMetadata{VideoID: videoID, Title: "How Volcanoes Work"}
}

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestContentSourceService_Resolve(t *testing.T) {
	dir := t.TempDir()

	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("  Line one  \r\n\r\n\r\n\r\nLine two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	docxPath := filepath.Join(dir, "essay.docx")
	writeDOCX(t, docxPath, `<w:document><w:body><w:p><w:r><w:t>Rocks &amp; minerals</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`)
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, []byte("a,b"), 0644); err != nil {
		t.Fatal(err)
	}

	yt := &stubTranscripts{transcript: "magma rises through the crust"}
	svc := &ContentSourceService{files: NewFileExtractService(), youtube: yt}

	tests := []struct {
		name      string
		src       models.ContentSource
		wantText  string
		wantTitle string
		wantField string
	}{
		{"text", models.ContentSource{Type: models.SourceText, Text: "  hello world "}, "hello world", "", ""},
		{"empty text", models.ContentSource{Type: models.SourceText, Text: "   "}, "", "", "text"},
		{"txt file", models.ContentSource{Type: models.SourceFile, FilePath: txtPath}, "Line one\n\nLine two", "", ""},
		{"docx file", models.ContentSource{Type: models.SourceFile, FilePath: docxPath}, "Rocks & minerals\nSecond", "", ""},
		{"unsupported file", models.ContentSource{Type: models.SourceFile, FilePath: csvPath}, "", "", "file"},
		{"youtube", models.ContentSource{Type: models.SourceYouTube, URL: "https://youtu.be/dQw4w9WgXcQ"}, "magma rises through the crust", "How Volcanoes Work", ""},
		{"bad youtube url", models.ContentSource{Type: models.SourceYouTube, URL: "https://example.com"}, "", "", "url"},
		{"unknown type", models.ContentSource{Type: "podcast"}, "", "", "type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Resolve(context.Background(), tc.src)
			if tc.wantField != "" {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				if _, ok := vErr.Fields[tc.wantField]; !ok {
					t.Errorf("expected field %q, got %v", tc.wantField, vErr.Fields)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text != tc.wantText {
				t.Errorf("Expected text %q, got %q", tc.wantText, got.Text)
			}
			if got.Title != tc.wantTitle {
				t.Errorf("Expected title %q, got %q", tc.wantTitle, got.Title)
			}
			if got.Source != tc.src.Type {
				t.Errorf("Expected source %q, got %q", tc.src.Type, got.Source)
			}
		})
	}

	if yt.lastID != "dQw4w9WgXcQ" {
		t.Errorf("Expected transcript lookup for dQw4w9WgXcQ, got %q", yt.lastID)
	}
}

func TestContentSourceService_Resolve_NoTranscript(t *testing.T) {
	svc := &ContentSourceService{
		files:   NewFileExtractService(),
		youtube: &stubTranscripts{err: errors.New("captions disabled")},
	}

	_, err := svc.Resolve(context.Background(), models.ContentSource{Type: models.SourceYouTube, URL: "https://youtu.be/dQw4w9WgXcQ"})
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<transcript><text start="0" dur="1">Hello &amp;amp; welcome</text><text start="1" dur="1">  </text><text start="2" dur="1">to class</text></transcript>`)

	got, err := parseCaptionsXML(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello & welcome to class" {
		t.Errorf("unexpected transcript %q", got)
	}

	if _, err := parseCaptionsXML([]byte(`<transcript></transcript>`)); err == nil {
		t.Errorf("expected error for empty captions")
	}
}

func TestExtractCaptionURL(t *testing.T) {
	page := `..."captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=abc&lang=en","name":{}}],"audioTracks"...`

	got, err := extractCaptionURL(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://www.youtube.com/api/timedtext?v=abc&lang=en" {
		t.Errorf("unexpected url %q", got)
	}

	if _, err := extractCaptionURL("<html></html>"); err == nil {
		t.Errorf("expected error when no caption tracks are present")
	}
}
