package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Strategy selects how the JSON span is located.
type Strategy int

const (
	// Greedy spans from the first opener to the last closer.
	Greedy Strategy = iota
	// Balanced stops where the first opener's nesting depth returns to zero.
	Balanced
)

func (s Strategy) String() string {
	switch s {
	case Greedy:
		return "greedy"
	case Balanced:
		return "balanced"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps "greedy" or "balanced" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return Greedy, nil
	case "balanced":
		return Balanced, nil
	default:
		return Greedy, fmt.Errorf("unknown extraction strategy %q", name)
	}
}

// Validator is implemented by result types that can check their own shape
// after a successful parse.
type Validator interface {
	Validate() error
}

type config struct {
	strategy Strategy
	repair   bool
}

type Option func(*config)

func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithRepair lets the decoder run a malformed payload through jsonrepair
// once before giving up.
func WithRepair() Option {
	return func(c *config) { c.repair = true }
}

// Span extracts the payload using the strategy selected by opts.
func Span(raw string, opts ...Option) (string, error) {
	cfg := newConfig(opts)
	if cfg.strategy == Balanced {
		return ExtractBalanced(raw)
	}
	return Extract(raw)
}

// ExtractAndDecode extracts the JSON span from raw and decodes it into T.
//
// Failures are *ExtractionError, *DecodeError or *ShapeError. A type
// mismatch between the payload and T is a shape failure, as is a Validate
// error when T or *T implements Validator.
func ExtractAndDecode[T any](raw string, opts ...Option) (T, error) {
	var zero T
	cfg := newConfig(opts)

	payload, err := Span(raw, opts...)
	if err != nil {
		return zero, err
	}

	value, err := decodePayload[T](payload)
	if err != nil {
		if isTypeMismatch(err) {
			return zero, &ShapeError{Raw: raw, Payload: payload, Err: err}
		}

		decodeErr := &DecodeError{Raw: raw, Payload: payload, Err: err}
		if !cfg.repair {
			return zero, decodeErr
		}

		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return zero, decodeErr
		}
		value, err = decodePayload[T](repaired)
		if err != nil {
			if isTypeMismatch(err) {
				return zero, &ShapeError{Raw: raw, Payload: repaired, Err: err}
			}
			return zero, decodeErr
		}
	}

	if err := validate(&value); err != nil {
		return zero, &ShapeError{Raw: raw, Payload: payload, Err: err}
	}

	return value, nil
}

func isTypeMismatch(err error) bool {
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

func newConfig(opts []Option) config {
	cfg := config{strategy: Greedy}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func decodePayload[T any](payload string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func validate[T any](v *T) error {
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}

	val, ok := any(*v).(Validator)
	if !ok {
		return nil
	}

	rv := reflect.ValueOf(*v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return errors.New("payload decoded to null")
	}
	return val.Validate()
}
