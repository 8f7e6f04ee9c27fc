package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"neurolearn-backend/internal/models"
	"neurolearn-backend/internal/services"
)

const maxUploadBytes = 25 << 20

type contentResolver interface {
	Resolve(ctx context.Context, src models.ContentSource) (*models.ResolvedContent, error)
}

type ContentHandler struct {
	content contentResolver
	tempDir string
	logger  *zap.Logger
}

// NewContentHandler stages uploads under tempDir; an empty tempDir uses the
// system default.
func NewContentHandler(content contentResolver, tempDir string, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{content: content, tempDir: tempDir, logger: logger.Named("content")}
}

// Upload extracts text from a multipart "file" field.
func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 25MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(services.SupportedExtensions, ext) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
		return
	}

	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+ext)
	if err != nil {
		h.logger.Error("failed to stage upload", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 25MB limit", r))
		return
	}

	resolved, err := h.content.Resolve(r.Context(), models.ContentSource{Type: models.SourceFile, FilePath: tmp.Name()})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if resolved.Title == "" {
		resolved.Title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	writeJSON(w, http.StatusOK, resolved)
}

// YouTube fetches the transcript of a video as learning material.
func (h *ContentHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	var req models.YouTubeContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resolved, err := h.content.Resolve(r.Context(), models.ContentSource{Type: models.SourceYouTube, URL: req.URL})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *ContentHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"extensions":     services.SupportedExtensions,
		"max_size_bytes": maxUploadBytes,
		"max_chars":      services.MaxContentChars,
	})
}
