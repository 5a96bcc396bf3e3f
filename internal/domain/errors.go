package domain

import (
	"errors"
	"fmt"
)

// Category sentinels shared by every layer.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Sentinel errors for the courtroom core and its collaborators.
var (
	// ErrGeneration marks any failure of the text-generation oracle.
	ErrGeneration = fmt.Errorf("generation failed")
	// ErrUnknownAgentType is returned when a role tag maps to no agent variant.
	ErrUnknownAgentType = fmt.Errorf("unknown agent type")
	// ErrMissingRequiredField is returned when a mandatory construction
	// parameter is absent and defaulting is disabled.
	ErrMissingRequiredField = fmt.Errorf("missing required field")

	ErrProviderNotFound = fmt.Errorf("llm provider not found")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrStore            = fmt.Errorf("store operation failed")

	// Oracle transport errors.
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrContextLength = fmt.Errorf("context window exceeded")
	ErrProviderError = fmt.Errorf("provider error")
	ErrMalformed     = fmt.Errorf("malformed provider response")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Factory.CreateAgent")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GenerationError wraps an oracle failure so that callers can match both
// ErrGeneration and the transport sentinel underneath it.
type GenerationError struct {
	Agent string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("%s: agent %q: %v", ErrGeneration, e.Agent, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrGeneration, e.Err)
}

// Unwrap exposes both the generation sentinel and the cause.
func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// IsRetryableError reports whether err is a transient oracle failure that may
// succeed on retry. Bad input is never retryable.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderError)
}

// ErrorCode is a machine-parseable error category for API responses and logs.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeGeneration       ErrorCode = "GENERATION_FAILED"
	CodeUnknownAgentType ErrorCode = "UNKNOWN_AGENT_TYPE"
	CodeMissingField     ErrorCode = "MISSING_REQUIRED_FIELD"
	CodeProviderNotFound ErrorCode = "PROVIDER_NOT_FOUND"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeStore            ErrorCode = "STORE"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeContextLength    ErrorCode = "CONTEXT_LENGTH"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeMalformed        ErrorCode = "MALFORMED_RESPONSE"
)

// errorCodeOrder lists sentinels from most to least specific. Transport causes
// are checked before ErrGeneration so a rate-limited call reports RATE_LIMIT.
var errorCodeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrRateLimit, CodeRateLimit},
	{ErrAuthInvalid, CodeAuthInvalid},
	{ErrContextLength, CodeContextLength},
	{ErrMalformed, CodeMalformed},
	{ErrTimeout, CodeTimeout},
	{ErrProviderError, CodeProviderError},
	{ErrGeneration, CodeGeneration},
	{ErrUnknownAgentType, CodeUnknownAgentType},
	{ErrMissingRequiredField, CodeMissingField},
	{ErrProviderNotFound, CodeProviderNotFound},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrStore, CodeStore},
	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrInvalidInput, CodeInvalidInput},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, entry := range errorCodeOrder {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
