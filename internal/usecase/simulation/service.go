// Package simulation persists cases, rosters and simulations, and replays
// stored participants through the courtroom agents on every request.
package simulation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

// DefaultMessagePage is the page size used when a caller asks for no limit.
const DefaultMessagePage = 100

// Service is the application layer over a CaseStore. It keeps no agents
// between calls: every operation rebuilds what it needs from storage.
type Service struct {
	store     domain.CaseStore
	factory   *courtroom.Factory
	predictor *courtroom.Predictor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service.
func NewService(store domain.CaseStore, factory *courtroom.Factory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		factory:   factory,
		predictor: courtroom.NewPredictor(logger),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- cases ---

// CreateCase validates and stores a new case.
func (s *Service) CreateCase(ctx context.Context, c *domain.Case) error {
	const op = "simulation.CreateCase"
	if c.Title == "" {
		return domain.NewDomainError(op, domain.ErrInvalidInput, "title is required")
	}
	if c.CaseType == "" {
		return domain.NewDomainError(op, domain.ErrInvalidInput, "case_type is required")
	}
	if err := s.store.CreateCase(ctx, c); err != nil {
		return err
	}
	s.logger.Info("case created", "case_id", c.ID, "case_type", c.CaseType)
	return nil
}

func (s *Service) GetCase(ctx context.Context, id string) (*domain.Case, error) {
	return s.store.GetCase(ctx, id)
}

// AddParticipant stores a roster member after proving the factory can build
// it. The role is the roster key; the agent type defaults to the role.
func (s *Service) AddParticipant(ctx context.Context, p *domain.Participant) error {
	const op = "simulation.AddParticipant"
	if p.Role == "" {
		return domain.NewDomainError(op, domain.ErrInvalidInput, "role is required")
	}
	if _, err := s.store.GetCase(ctx, p.CaseID); err != nil {
		return err
	}
	agent, err := s.agentFor(p, nil)
	if err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = agent.Name()
	}
	if p.AgentType == "" {
		p.AgentType = agent.Kind().String()
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return err
	}
	s.logger.Info("participant added", "case_id", p.CaseID, "role", p.Role, "name", p.Name)
	return nil
}

func (s *Service) ListParticipants(ctx context.Context, caseID string) ([]*domain.Participant, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, caseID)
}

// FamilyCaseRequest creates a family case with its canonical roster.
type FamilyCaseRequest struct {
	Title       string `json:"case_title"`
	Description string `json:"case_description"`
	courtroom.CaseDetails
}

// FamilyCase is the result of CreateFamilyCourtCase.
type FamilyCase struct {
	Case         *domain.Case                   `json:"case"`
	Participants map[string]*domain.Participant `json:"participants"`
}

// CreateFamilyCourtCase persists a family case and the five canonical
// participants. Each participant stores its construction parameters, so a
// later rebuild yields an equivalent agent.
func (s *Service) CreateFamilyCourtCase(ctx context.Context, req FamilyCaseRequest) (*FamilyCase, error) {
	const op = "simulation.CreateFamilyCourtCase"
	if req.ClientName == "" {
		return nil, domain.NewDomainError(op, domain.ErrMissingRequiredField, "client_name")
	}
	if req.OpposingName == "" {
		return nil, domain.NewDomainError(op, domain.ErrMissingRequiredField, "opposing_name")
	}

	roster, err := s.factory.CreateFamilyCourtSimulation(req.CaseDetails)
	if err != nil {
		return nil, err
	}

	c := &domain.Case{
		Title:       cmp.Or(req.Title, "Family Court Case"),
		CaseType:    "family",
		Description: req.Description,
		Metadata: map[string]any{
			"client_name":   req.ClientName,
			"opposing_name": req.OpposingName,
		},
	}
	if req.Relationship != "" {
		c.Metadata["relationship"] = req.Relationship
	}
	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, err
	}

	params := courtroom.FamilyCourtParams(req.CaseDetails)
	out := &FamilyCase{Case: c, Participants: make(map[string]*domain.Participant, len(roster))}
	for _, key := range courtroom.FamilyCourtRoles {
		agent := roster[key]
		p := &domain.Participant{
			CaseID:    c.ID,
			Role:      key,
			AgentType: agent.Kind().String(),
			Name:      agent.Name(),
			Params:    map[string]any(params[key]),
		}
		if err := s.store.AddParticipant(ctx, p); err != nil {
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
		out.Participants[key] = p
	}

	s.logger.Info("family court case created",
		"case_id", c.ID,
		"client", req.ClientName,
		"opposing_party", req.OpposingName,
	)
	return out, nil
}

// --- simulations ---

// CreateSimulation opens a new active simulation against caseID.
func (s *Service) CreateSimulation(ctx context.Context, caseID, title, conversationType string) (*domain.Simulation, error) {
	const op = "simulation.CreateSimulation"
	if title == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "title is required")
	}
	if conversationType == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "conversation_type is required")
	}
	sim := &domain.Simulation{
		CaseID:           caseID,
		Title:            title,
		ConversationType: conversationType,
		Status:           domain.SimulationActive,
	}
	if err := s.store.CreateSimulation(ctx, sim); err != nil {
		return nil, err
	}
	s.logger.Info("simulation created", "simulation_id", sim.ID, "case_id", caseID, "type", conversationType)
	return sim, nil
}

func (s *Service) GetSimulation(ctx context.Context, id string) (*domain.Simulation, error) {
	return s.store.GetSimulation(ctx, id)
}

func (s *Service) ListSimulations(ctx context.Context, caseID string) ([]*domain.Simulation, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListSimulations(ctx, caseID)
}

// SimulationUpdate carries optional changes; empty fields are left alone.
type SimulationUpdate struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"title,omitempty"`
}

// UpdateSimulation applies u. Completing a simulation stamps its end time;
// reactivating it clears that stamp.
func (s *Service) UpdateSimulation(ctx context.Context, id string, u SimulationUpdate) (*domain.Simulation, error) {
	const op = "simulation.UpdateSimulation"
	sim, err := s.store.GetSimulation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch u.Status {
	case "":
	case domain.SimulationCompleted:
		sim.Status = u.Status
		sim.EndedAt = new(s.now())
	case domain.SimulationActive:
		sim.Status = u.Status
		sim.EndedAt = nil
	default:
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("unknown status %q", u.Status))
	}
	if u.Title != "" {
		sim.Title = u.Title
	}
	if err := s.store.UpdateSimulation(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// DeleteSimulation removes a simulation and all of its messages.
func (s *Service) DeleteSimulation(ctx context.Context, id string) error {
	if err := s.store.DeleteSimulation(ctx, id); err != nil {
		return err
	}
	s.logger.Info("simulation deleted", "simulation_id", id)
	return nil
}

// --- messages ---

// AddMessage records a manual utterance by participantID. Client messages
// are stored with the user role, everyone else's with the assistant role.
func (s *Service) AddMessage(ctx context.Context, simID, participantID, content string, metadata map[string]any) (*domain.SimulationMessage, error) {
	const op = "simulation.AddMessage"
	if content == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "content is required")
	}
	sim, err := s.store.GetSimulation(ctx, simID)
	if err != nil {
		return nil, err
	}
	p, err := s.participantIn(ctx, op, sim, participantID)
	if err != nil {
		return nil, err
	}
	m := &domain.SimulationMessage{
		SimulationID:    sim.ID,
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
		ParticipantRole: p.Role,
		Role:            transcriptRole(p.Role),
		Content:         content,
		Metadata:        metadata,
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages pages through a simulation's transcript.
func (s *Service) ListMessages(ctx context.Context, simID string, offset, limit int) ([]*domain.SimulationMessage, error) {
	if _, err := s.store.GetSimulation(ctx, simID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessagePage
	}
	return s.store.ListMessages(ctx, simID, offset, limit)
}

// --- helpers ---

// agentFor rebuilds p's agent. Stored params win over nothing, the stored
// name and system prompt win over params.
func (s *Service) agentFor(p *domain.Participant, seed []domain.Message) (courtroom.Agent, error) {
	params := make(courtroom.Params, len(p.Params)+2)
	maps.Copy(params, p.Params)
	if p.Name != "" {
		params[courtroom.ParamName] = p.Name
	}
	if p.SystemPrompt != "" {
		params[courtroom.ParamSystemPrompt] = p.SystemPrompt
	}
	return s.factory.CreateAgent(cmp.Or(p.AgentType, p.Role), params, courtroom.WithSeed(seed))
}

// participantIn loads participantID and checks it belongs to sim's case.
func (s *Service) participantIn(ctx context.Context, op string, sim *domain.Simulation, participantID string) (*domain.Participant, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.CaseID != sim.CaseID {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput,
			fmt.Sprintf("participant %s is not part of case %s", p.ID, sim.CaseID))
	}
	return p, nil
}

// seedFor replays participantID's earlier utterances as that agent's own
// history: the input it was given, then what it said.
func seedFor(messages []*domain.SimulationMessage, participantID string) []domain.Message {
	var seed []domain.Message
	for _, m := range messages {
		if m.ParticipantID != participantID {
			continue
		}
		if input, ok := m.Metadata[metaInput].(string); ok && input != "" {
			seed = append(seed, domain.Message{Role: domain.RoleUser, Content: input, Timestamp: m.Timestamp})
		}
		seed = append(seed, domain.Message{Role: domain.RoleAssistant, Content: m.Content, Timestamp: m.Timestamp})
	}
	return seed
}

func transcriptRole(role string) string {
	if role == courtroom.RoleClient {
		return domain.RoleUser
	}
	return domain.RoleAssistant
}

// lastInput returns the most recent user turn in agent's history.
func lastInput(agent courtroom.Agent) string {
	h := agent.History()
	for i := len(h) - 1; i > 0; i-- {
		if h[i].Role == domain.RoleUser {
			return h[i].Content
		}
	}
	return ""
}

// mergeMetadata returns a copy of base with key set to value.
func mergeMetadata(base map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(base)+1)
	maps.Copy(out, base)
	out[key] = value
	return out
}

// Message metadata keys.
const (
	metaInput      = "input"
	metaSpeakerKey = "speaker_key"
	metaContext    = "scenario_context"
	metaOperation  = "operation"
	metaLastRun    = "last_scenario"
	metaPrediction = "outcome_prediction"
	metaTimestamp  = "timestamp"
)
