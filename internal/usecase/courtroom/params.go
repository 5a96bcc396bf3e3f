package courtroom

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"

	"virtual-courtroom/internal/domain"
)

// Generation defaults applied when a caller leaves a parameter unset.
const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// GenerationParams controls how an agent calls the oracle.
type GenerationParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each oracle call. Zero means no per-call bound.
	Timeout time.Duration
}

// DefaultGenerationParams returns gpt-4 / 0.7 / 1024 with no timeout.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// withDefaults fills unset fields from DefaultGenerationParams. A zero
// temperature is kept once any other field is set.
func (p GenerationParams) withDefaults() GenerationParams {
	if p.Model == "" && p.Temperature == 0 && p.MaxTokens == 0 {
		d := DefaultGenerationParams()
		d.Timeout = p.Timeout
		return d
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	return p
}

// Field is a construction value that may have been supplied by the caller or
// backfilled with a default. A zero Field is unset.
type Field[T any] struct {
	Value     T
	Defaulted bool
	Via       string // component that supplied the default
	set       bool
}

// Provided wraps a caller-supplied value.
func Provided[T any](v T) Field[T] {
	return Field[T]{Value: v, set: true}
}

// DefaultedTo wraps a backfilled value and records who chose it.
func DefaultedTo[T any](v T, via string) Field[T] {
	return Field[T]{Value: v, Defaulted: true, Via: via, set: true}
}

// IsSet reports whether the field carries a value, provided or defaulted.
func (f Field[T]) IsSet() bool { return f.set }

// Params is the loosely typed construction input accepted by the factory.
// Keys mirror the persisted participant parameters (name, background,
// aggressive_factor, ...). Values decoded from JSON are accepted as-is.
type Params map[string]any

// Param keys understood by the factory.
const (
	ParamName            = "name"
	ParamSystemPrompt    = "system_prompt"
	ParamModel           = "model"
	ParamTemperature     = "temperature"
	ParamMaxTokens       = "max_tokens"
	ParamBackground      = "background"
	ParamDemeanor        = "demeanor"
	ParamEmotionalState  = "emotional_state"
	ParamRelationship    = "relationship_to_client"
	ParamRepresenting    = "representing"
	ParamSpecialization  = "specialization"
	ParamExperienceLevel = "experience_level"
	ParamAggressive      = "aggressive_factor"
	ParamJurisdiction    = "jurisdiction"
	ParamLegalExperience = "legal_experience"
)

// Clone returns a shallow copy so backfilling never mutates caller input.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Has reports whether key is present with a non-nil value.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value for key as a string.
func (p Params) String(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, paramTypeError(key, "string", v)
	}
	return s, true, nil
}

// Float returns the value for key as a float64. Integers, json.Number and
// numeric strings are accepted.
func (p Params) Float(key string) (float64, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, true, paramTypeError(key, "number", v)
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, true, paramTypeError(key, "number", v)
		}
		return f, true, nil
	default:
		return 0, true, paramTypeError(key, "number", v)
	}
}

// Int returns the value for key as an int.
func (p Params) Int(key string) (int, bool, error) {
	f, ok, err := p.Float(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(f), true, nil
}

// Map returns the value for key as a string-keyed map.
func (p Params) Map(key string) (map[string]any, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true, nil
	default:
		return nil, true, paramTypeError(key, "object", v)
	}
}

func paramTypeError(key, want string, got any) error {
	return domain.NewDomainError("Params."+key, domain.ErrInvalidInput,
		fmt.Sprintf("want %s, got %T", want, got))
}
