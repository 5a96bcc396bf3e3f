package llm

import (
	"context"
	"log/slog"
	"sync/atomic"

	"virtual-courtroom/internal/domain"
)

type mockProvider struct {
	name     string
	calls    atomic.Int32
	chatFunc func(context.Context, domain.ChatRequest) (*domain.ChatResponse, error)
}

func (m *mockProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.calls.Add(1)
	if m.chatFunc == nil {
		return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: m.name}}, nil
	}
	return m.chatFunc(ctx, req)
}

func (m *mockProvider) Name() string { return m.name }

func failing(name string, err error) *mockProvider {
	return &mockProvider{
		name: name,
		chatFunc: func(context.Context, domain.ChatRequest) (*domain.ChatResponse, error) {
			return nil, err
		},
	}
}

func newTestLogger() *slog.Logger {
	return slog.Default()
}

func courtRequest() domain.ChatRequest {
	return domain.ChatRequest{
		Model:       "gpt-4",
		MaxTokens:   1024,
		Temperature: 0.7,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are a 20-year experienced judge in the Family Court."},
			{Role: domain.RoleUser, Content: "The court is now in session."},
		},
	}
}
