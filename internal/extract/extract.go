// Package extract salvages a single JSON value from free-form model output.
//
// Model responses often wrap the requested JSON in prose or markdown fences.
// Extract locates the span between the first opening and the last closing
// delimiter; ExtractAndDecode then parses that span into the caller's type.
// Nothing here performs I/O or logs, so every function is safe for
// concurrent use.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction = errors.New("extraction failed")
	ErrDecode     = errors.New("decode failed")
	ErrShape      = errors.New("shape check failed")
)

// ExtractionError reports that no plausible JSON span exists in Raw.
type ExtractionError struct {
	Raw    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %s (response length %d)", e.Reason, len(e.Raw))
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// DecodeError reports that the extracted span is not valid JSON.
type DecodeError struct {
	Raw     string
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: invalid JSON payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ShapeError reports a syntactically valid payload that does not match the
// expected structure.
type ShapeError struct {
	Raw     string
	Payload string
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape: %v", e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

const (
	openers = "{["
	closers = "}]"
)

// Extract returns raw[start:end+1] where start is the first '{' or '[' and
// end is the last '}' or ']'. The span is greedy: two sibling fragments are
// returned together with whatever sits between them.
//
// A closer that only appears before the first opener leaves that opener
// unclosed and is an extraction failure.
func Extract(raw string) (string, error) {
	start := strings.IndexAny(raw, openers)
	if start < 0 {
		return "", &ExtractionError{Raw: raw, Reason: "no opening '{' or '[' found"}
	}

	end := strings.LastIndexAny(raw, closers)
	if end < 0 {
		return "", &ExtractionError{Raw: raw, Reason: "no closing '}' or ']' found"}
	}

	if start > end {
		return "", &ExtractionError{Raw: raw, Reason: "no closing '}' or ']' after the first opener"}
	}

	return raw[start : end+1], nil
}

// ExtractBalanced scans forward from the first opener, tracking nesting depth
// outside of string literals, and returns the span that closes it.
func ExtractBalanced(raw string) (string, error) {
	start := strings.IndexAny(raw, openers)
	if start < 0 {
		return "", &ExtractionError{Raw: raw, Reason: "no opening '{' or '[' found"}
	}
	if strings.LastIndexAny(raw, closers) < start {
		return "", &ExtractionError{Raw: raw, Reason: "no closing '}' or ']' found"}
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", &ExtractionError{
		Raw:    raw,
		Reason: fmt.Sprintf("unbalanced delimiters: opener at byte %d is never closed", start),
	}
}
