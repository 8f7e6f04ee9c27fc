package services

import (
	"errors"
	"fmt"

	"neurolearn-backend/internal/extract"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// GenerationError reports that an AI-backed operation gave up. Err is either
// the transport error from the model or the last extraction/decode/shape
// error raised while salvaging its answer.
type GenerationError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// InvalidResponse reports whether the model answered but its answer could
// not be turned into the requested structure.
func (e *GenerationError) InvalidResponse() bool {
	return isSalvageError(e.Err)
}

func isSalvageError(err error) bool {
	return errors.Is(err, extract.ErrExtraction) ||
		errors.Is(err, extract.ErrDecode) ||
		errors.Is(err, extract.ErrShape)
}
