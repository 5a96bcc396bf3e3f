package domain

import "context"

// LLMProvider is the text-generation oracle every agent talks to.
// Implementations return errors wrapping ErrRateLimit, ErrAuthInvalid,
// ErrContextLength, ErrProviderError or ErrMalformed where they can classify
// the failure.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "openai", "groq").
	Name() string
}
