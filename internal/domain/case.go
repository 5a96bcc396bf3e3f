package domain

import (
	"context"
	"time"
)

// Case is a legal matter being simulated.
type Case struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CaseType    string         `json:"case_type"` // e.g. "family"
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Participant is the persisted construction recipe for one roster member.
// Rebuilding an agent from the same participant yields an equivalent agent.
type Participant struct {
	ID           string         `json:"id"`
	CaseID       string         `json:"case_id"`
	Role         string         `json:"role"`       // roster key, e.g. "client_counsel"
	AgentType    string         `json:"agent_type"` // optional explicit type tag
	Name         string         `json:"name"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Simulation status values.
const (
	SimulationActive    = "active"
	SimulationCompleted = "completed"
)

// Simulation is a conversation run against a case's roster.
type Simulation struct {
	ID               string         `json:"id"`
	CaseID           string         `json:"case_id"`
	Title            string         `json:"title"`
	ConversationType string         `json:"conversation_type"` // hearing, examination, ...
	Status           string         `json:"status"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
}

// SimulationMessage is one persisted utterance inside a simulation.
type SimulationMessage struct {
	ID              string         `json:"id"`
	SimulationID    string         `json:"simulation_id"`
	ParticipantID   string         `json:"participant_id"`
	ParticipantName string         `json:"participant_name"`
	ParticipantRole string         `json:"participant_role"`
	Role            string         `json:"role"` // user or assistant
	Content         string         `json:"content"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// CaseStore persists cases, participants, simulations and their messages.
type CaseStore interface {
	CreateCase(ctx context.Context, c *Case) error
	GetCase(ctx context.Context, id string) (*Case, error)

	AddParticipant(ctx context.Context, p *Participant) error
	GetParticipant(ctx context.Context, id string) (*Participant, error)
	UpdateParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, caseID string) ([]*Participant, error)

	CreateSimulation(ctx context.Context, s *Simulation) error
	GetSimulation(ctx context.Context, id string) (*Simulation, error)
	ListSimulations(ctx context.Context, caseID string) ([]*Simulation, error)
	UpdateSimulation(ctx context.Context, s *Simulation) error
	DeleteSimulation(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, m *SimulationMessage) error
	ListMessages(ctx context.Context, simulationID string, offset, limit int) ([]*SimulationMessage, error)
}
