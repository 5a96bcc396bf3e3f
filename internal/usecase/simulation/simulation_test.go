package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

// --- Mocks ---

// mockLLM replies through reply, or with "reply <n>" when reply is nil.
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
		if text, err = reply(req); err != nil {
			return nil, err
		}
	}
	return &domain.ChatResponse{
		Model:   req.Model,
		Message: domain.Message{Role: domain.RoleAssistant, Content: text},
	}, nil
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) calls() []domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// memStore is an in-memory domain.CaseStore.
type memStore struct {
	mu           sync.Mutex
	seq          int
	cases        map[string]domain.Case
	participants []domain.Participant
	sims         map[string]domain.Simulation
	messages     []domain.SimulationMessage
	appendErr    error
}

func newMemStore() *memStore {
	return &memStore{
		cases: make(map[string]domain.Case),
		sims:  make(map[string]domain.Simulation),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func notFound(kind, id string) error {
	return domain.NewDomainError("memStore", domain.ErrNotFound, kind+" "+id)
}

func (m *memStore) CreateCase(_ context.Context, c *domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = m.nextID("case")
	}
	m.cases[c.ID] = *c
	return nil
}

func (m *memStore) GetCase(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, notFound("case", id)
	}
	return &c, nil
}

func (m *memStore) AddParticipant(_ context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[p.CaseID]; !ok {
		return notFound("case", p.CaseID)
	}
	if p.ID == "" {
		p.ID = m.nextID("participant")
	}
	m.participants = append(m.participants, *p)
	return nil
}

func (m *memStore) GetParticipant(_ context.Context, id string) (*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, notFound("participant", id)
}

func (m *memStore) UpdateParticipant(_ context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.participants {
		if m.participants[i].ID == p.ID {
			m.participants[i] = *p
			return nil
		}
	}
	return notFound("participant", p.ID)
}

func (m *memStore) ListParticipants(_ context.Context, caseID string) ([]*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Participant
	for _, p := range m.participants {
		if p.CaseID == caseID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memStore) CreateSimulation(_ context.Context, s *domain.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[s.CaseID]; !ok {
		return notFound("case", s.CaseID)
	}
	if s.ID == "" {
		s.ID = m.nextID("sim")
	}
	s.StartedAt = time.Now().UTC()
	m.sims[s.ID] = *s
	return nil
}

func (m *memStore) GetSimulation(_ context.Context, id string) (*domain.Simulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sims[id]
	if !ok {
		return nil, notFound("simulation", id)
	}
	return &s, nil
}

func (m *memStore) ListSimulations(_ context.Context, caseID string) ([]*domain.Simulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Simulation
	for _, s := range m.sims {
		if s.CaseID == caseID {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *memStore) UpdateSimulation(_ context.Context, s *domain.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[s.ID]; !ok {
		return notFound("simulation", s.ID)
	}
	m.sims[s.ID] = *s
	return nil
}

func (m *memStore) DeleteSimulation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[id]; !ok {
		return notFound("simulation", id)
	}
	delete(m.sims, id)
	m.messages = slices.DeleteFunc(m.messages, func(msg domain.SimulationMessage) bool {
		return msg.SimulationID == id
	})
	return nil
}

func (m *memStore) AppendMessage(_ context.Context, msg *domain.SimulationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if _, ok := m.sims[msg.SimulationID]; !ok {
		return notFound("simulation", msg.SimulationID)
	}
	if msg.ID == "" {
		msg.ID = m.nextID("msg")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) ListMessages(_ context.Context, simID string, offset, limit int) ([]*domain.SimulationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SimulationMessage
	for _, msg := range m.messages {
		if msg.SimulationID == simID {
			out = append(out, &msg)
		}
	}
	offset = min(max(offset, 0), len(out))
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestService(llm domain.LLMProvider) (*Service, *memStore) {
	store := newMemStore()
	factory := courtroom.NewFactory(llm, courtroom.FactoryConfig{}, testLogger())
	return NewService(store, factory, testLogger()), store
}

// persona returns the system prompt the request was made under.
func persona(req domain.ChatRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[0].Content
}

func lastUserContent(req domain.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
