package courtroom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"virtual-courtroom/internal/domain"
)

// --- Mocks ---

// mockLLM answers every call through reply, or with a canned echo of the
// last message when reply is nil. Requests are recorded for inspection.
type mockLLM struct {
	mu       sync.Mutex
	reply    func(req domain.ChatRequest) (string, error)
	requests []domain.ChatRequest
}

func (m *mockLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	reply := m.reply
	m.mu.Unlock()

	text := fmt.Sprintf("reply %d", n)
	if reply != nil {
		var err error
		text, err = reply(req)
		if err != nil {
			return nil, err
		}
	}
	return &domain.ChatResponse{
		ID:      fmt.Sprintf("resp-%d", n),
		Model:   req.Model,
		Message: domain.Message{Role: domain.RoleAssistant, Content: text},
	}, nil
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) calls() []domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatRequest(nil), m.requests...)
}

// lastUserContent returns the content of the final user message in req.
func lastUserContent(req domain.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func testDeps(llm domain.LLMProvider) Deps {
	return Deps{LLM: llm, Logger: testLogger()}
}

func newTestFactory(llm domain.LLMProvider) *Factory {
	return NewFactory(llm, FactoryConfig{}, testLogger())
}
