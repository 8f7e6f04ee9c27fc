package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractAndDecode_MatchesDirectParse(t *testing.T) {
	payloads := []string{
		`{"a":1}`,
		`{"title":"Photosynthesis","levels":[{"level":"beginner","text":"Plants eat light."}]}`,
		`[1,2,3]`,
		`[{"q":"Why?","options":["a","b"]}]`,
		`{"nested":{"deep":[true,false,null]}}`,
	}
	wrappers := []string{
		"%s",
		"Here is the JSON you asked for:\n%s\nLet me know if you need anything else.",
		"```json\n%s\n```",
		"```\n%s\n```\n",
		"   \n\t%s\n\n",
	}

	for _, payload := range payloads {
		var want any
		if err := json.Unmarshal([]byte(payload), &want); err != nil {
			t.Fatalf("bad fixture %q: %v", payload, err)
		}

		for _, wrapper := range wrappers {
			raw := fmt.Sprintf(wrapper, payload)
			got, err := ExtractAndDecode[any](raw)
			if err != nil {
				t.Fatalf("ExtractAndDecode(%q) unexpected error: %v", raw, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ExtractAndDecode(%q) mismatch (-want +got):\n%s", raw, diff)
			}
		}
	}
}

func TestExtractAndDecode_Failures(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantKind    error
		wantPayload string
	}{
		{"empty string", ``, ErrExtraction, ""},
		{"lone open brace", `{`, ErrExtraction, ""},
		{"prose only", `I could not generate a quiz for this content.`, ErrExtraction, ""},
		{"broken value", `{"a": }`, ErrDecode, `{"a": }`},
		{"two siblings", `noise {"a":1} more noise [1,2,3] tail`, ErrDecode, `{"a":1} more noise [1,2,3]`},
		{"truncated output", "```json\n{\"questions\": [{\"q\": \"Why\"}\n```", ErrDecode, `{"questions": [{"q": "Why"}`},
		{"reversed delimiters", `] oops [`, ErrExtraction, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractAndDecode[map[string]any](tc.raw)
			if !errors.Is(err, tc.wantKind) {
				t.Fatalf("expected %v, got %v", tc.wantKind, err)
			}

			if tc.wantKind != ErrDecode {
				return
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if decodeErr.Payload != tc.wantPayload {
				t.Errorf("Expected payload %q, got %q", tc.wantPayload, decodeErr.Payload)
			}
			if decodeErr.Raw != tc.raw {
				t.Errorf("Expected raw %q to be preserved, got %q", tc.raw, decodeErr.Raw)
			}
			if decodeErr.Unwrap() == nil {
				t.Errorf("expected wrapped json error")
			}
		})
	}
}

func TestExtractAndDecode_FencedObject(t *testing.T) {
	got, err := ExtractAndDecode[map[string]int]("```json\n{\"a\":1}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"a": 1}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAndDecode_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		`{"a": }`,
		``,
		`noise {"a":1} more noise [1,2,3] tail`,
	}

	for _, raw := range inputs {
		first, firstErr := ExtractAndDecode[any](raw)
		for i := 0; i < 3; i++ {
			again, err := ExtractAndDecode[any](raw)
			if diff := cmp.Diff(first, again); diff != "" {
				t.Fatalf("result changed on call %d for %q:\n%s", i+2, raw, diff)
			}
			if errorKind(firstErr) != errorKind(err) {
				t.Fatalf("error kind changed on call %d for %q: %v vs %v", i+2, raw, firstErr, err)
			}
		}
	}
}

func TestExtractAndDecode_BalancedStrategy(t *testing.T) {
	raw := `noise {"a":1} more noise [1,2,3] tail`

	got, err := ExtractAndDecode[map[string]int](raw, WithStrategy(Balanced))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"a": 1}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAndDecode_Repair(t *testing.T) {
	raw := "Sure:\n{name: 'Ada', tags: ['math', 'poetry',],}\nDone."

	if _, err := ExtractAndDecode[map[string]any](raw); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error without repair, got %v", err)
	}

	got, err := ExtractAndDecode[map[string]any](raw, WithRepair())
	if err != nil {
		t.Fatalf("unexpected error with repair: %v", err)
	}
	want := map[string]any{"name": "Ada", "tags": []any{"math", "poetry"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAndDecode_RepairedTypeMismatchIsShape(t *testing.T) {
	raw := "{score: 'high',}"

	_, err := ExtractAndDecode[struct{ Score int }](raw, WithRepair())
	if !errors.Is(err, ErrShape) {
		t.Fatalf("expected shape error after repair, got %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Errorf("repaired type mismatch must not be reported as a decode error")
	}

	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeError, got %T", err)
	}
	if shapeErr.Raw != raw {
		t.Errorf("Expected raw %q to be preserved, got %q", raw, shapeErr.Raw)
	}
}

type levelSet struct {
	Levels []string `json:"levels"`
}

func (l *levelSet) Validate() error {
	if len(l.Levels) == 0 {
		return errors.New("levels must not be empty")
	}
	return nil
}

type scored struct {
	Score int `json:"score"`
}

func (s scored) Validate() error {
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("score %d out of range", s.Score)
	}
	return nil
}

func TestExtractAndDecode_ShapeChecks(t *testing.T) {
	if _, err := ExtractAndDecode[levelSet](`{"levels": []}`); !errors.Is(err, ErrShape) {
		t.Fatalf("expected shape error for empty levels, got %v", err)
	}

	got, err := ExtractAndDecode[levelSet](`result: {"levels": ["beginner"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"beginner"}, got.Levels); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := ExtractAndDecode[scored](`{"score": 140}`); !errors.Is(err, ErrShape) {
		t.Fatalf("expected shape error for value receiver validator, got %v", err)
	}

	if _, err := ExtractAndDecode[*scored](`{"score": 140}`); !errors.Is(err, ErrShape) {
		t.Fatalf("expected shape error for pointer result, got %v", err)
	}

	var shapeErr *ShapeError
	_, err = ExtractAndDecode[scored](`{"score": "high"}`)
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected type mismatch to be a shape error, got %v", err)
	}
	if shapeErr.Payload != `{"score": "high"}` {
		t.Errorf("unexpected payload %q", shapeErr.Payload)
	}
}

func TestExtractAndDecode_Concurrent(t *testing.T) {
	raw := "```json\n{\"a\":1,\"b\":[1,2]}\n```"

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := ExtractAndDecode[map[string]any](raw)
			if err != nil {
				errs <- err
				return
			}
			if v["a"] != float64(1) {
				errs <- fmt.Errorf("unexpected value %v", v["a"])
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrShape):
		return "shape"
	default:
		return "other"
	}
}
