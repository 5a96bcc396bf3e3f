package simulation

import (
	"context"
	"fmt"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

// Role operation names recorded on persisted replies.
const (
	OpMessage      = "message"
	OpTestimony    = "testimony"
	OpArgument     = "argument"
	OpCrossExamine = "cross_examine"
	OpRuling       = "ruling"
	OpAllegation   = "allegation"
)

// RoleResult is what a participant produced. Message is set only when the
// call was bound to a simulation.
type RoleResult struct {
	ParticipantID string                    `json:"participant_id"`
	AgentName     string                    `json:"agent_name"`
	Response      *domain.AgentResponse     `json:"response"`
	Message       *domain.SimulationMessage `json:"message,omitempty"`
}

// MessageRequest sends free text to a participant.
type MessageRequest struct {
	SimulationID string `json:"simulation_id,omitempty"`
	Message      string `json:"message"`
}

type TestimonyRequest struct {
	SimulationID string `json:"simulation_id,omitempty"`
	Question     string `json:"question"`
}

type ArgumentRequest struct {
	SimulationID string         `json:"simulation_id,omitempty"`
	Issue        string         `json:"issue"`
	Facts        map[string]any `json:"facts"`
}

type CrossExamRequest struct {
	SimulationID string   `json:"simulation_id,omitempty"`
	Witness      string   `json:"witness"`
	Testimony    string   `json:"testimony"`
	Weaknesses   []string `json:"weaknesses"`
}

type RulingRequest struct {
	SimulationID string           `json:"simulation_id,omitempty"`
	CaseDetails  map[string]any   `json:"case_details"`
	Arguments    []map[string]any `json:"arguments"`
}

type AllegationRequest struct {
	SimulationID string `json:"simulation_id,omitempty"`
	Allegation   string `json:"allegation"`
}

type testifier interface {
	ProvideTestimony(ctx context.Context, question string) (*domain.AgentResponse, error)
}

type emotional interface {
	EmotionalState() string
	UpdateEmotionalState(state string)
}

// SendMessage runs free text through any participant.
func (s *Service) SendMessage(ctx context.Context, participantID string, req MessageRequest) (*RoleResult, error) {
	if req.Message == "" {
		return nil, domain.NewDomainError("simulation.SendMessage", domain.ErrInvalidInput, "message is required")
	}
	return s.invoke(ctx, participantID, req.SimulationID, OpMessage,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			return a.Process(ctx, req.Message)
		})
}

// Testimony asks a client or opposing party to answer under oath.
func (s *Service) Testimony(ctx context.Context, participantID string, req TestimonyRequest) (*RoleResult, error) {
	if req.Question == "" {
		return nil, domain.NewDomainError("simulation.Testimony", domain.ErrInvalidInput, "question is required")
	}
	return s.invoke(ctx, participantID, req.SimulationID, OpTestimony,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			w, ok := a.(testifier)
			if !ok {
				return nil, notCapable(a, OpTestimony)
			}
			return w.ProvideTestimony(ctx, req.Question)
		})
}

// Argument asks a legal counsel to draft an argument on an issue.
func (s *Service) Argument(ctx context.Context, participantID string, req ArgumentRequest) (*RoleResult, error) {
	if req.Issue == "" {
		return nil, domain.NewDomainError("simulation.Argument", domain.ErrInvalidInput, "issue is required")
	}
	return s.invoke(ctx, participantID, req.SimulationID, OpArgument,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			c, ok := a.(*courtroom.LegalCounsel)
			if !ok {
				return nil, notCapable(a, OpArgument)
			}
			return c.PrepareArgument(ctx, req.Facts, req.Issue)
		})
}

// CrossExamine asks a legal counsel to prepare questions for a witness.
func (s *Service) CrossExamine(ctx context.Context, participantID string, req CrossExamRequest) (*RoleResult, error) {
	if req.Witness == "" {
		return nil, domain.NewDomainError("simulation.CrossExamine", domain.ErrInvalidInput, "witness is required")
	}
	return s.invoke(ctx, participantID, req.SimulationID, OpCrossExamine,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			c, ok := a.(*courtroom.LegalCounsel)
			if !ok {
				return nil, notCapable(a, OpCrossExamine)
			}
			return c.CrossExamine(ctx, req.Witness, req.Testimony, req.Weaknesses)
		})
}

// Ruling asks a judge for a formal ruling.
func (s *Service) Ruling(ctx context.Context, participantID string, req RulingRequest) (*RoleResult, error) {
	return s.invoke(ctx, participantID, req.SimulationID, OpRuling,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			j, ok := a.(*courtroom.Judicial)
			if !ok {
				return nil, notCapable(a, OpRuling)
			}
			return j.IssueRuling(ctx, req.CaseDetails, req.Arguments)
		})
}

// Allegation asks an opposing party to respond to an allegation.
func (s *Service) Allegation(ctx context.Context, participantID string, req AllegationRequest) (*RoleResult, error) {
	if req.Allegation == "" {
		return nil, domain.NewDomainError("simulation.Allegation", domain.ErrInvalidInput, "allegation is required")
	}
	return s.invoke(ctx, participantID, req.SimulationID, OpAllegation,
		func(ctx context.Context, a courtroom.Agent) (*domain.AgentResponse, error) {
			o, ok := a.(*courtroom.OpposingParty)
			if !ok {
				return nil, notCapable(a, OpAllegation)
			}
			return o.RespondToAllegation(ctx, req.Allegation)
		})
}

// EmotionalState changes a party's emotional state. The state is stored in
// the participant's params so every later rebuild carries it.
func (s *Service) EmotionalState(ctx context.Context, participantID, state string) (*domain.Participant, error) {
	const op = "simulation.EmotionalState"
	if state == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "state is required")
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	agent, err := s.agentFor(p, nil)
	if err != nil {
		return nil, err
	}
	e, ok := agent.(emotional)
	if !ok {
		return nil, notCapable(agent, "emotional_state")
	}
	e.UpdateEmotionalState(state)

	p.Params = mergeMetadata(p.Params, courtroom.ParamEmotionalState, e.EmotionalState())
	if err := s.store.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("emotional state updated", "participant", p.ID, "state", state)
	return p, nil
}

// invoke rebuilds the participant, seeded from simID when given, runs call
// and persists the reply into the simulation.
func (s *Service) invoke(ctx context.Context, participantID, simID, operation string,
	call func(context.Context, courtroom.Agent) (*domain.AgentResponse, error)) (*RoleResult, error) {
	op := "simulation." + operation

	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	var sim *domain.Simulation
	var seed []domain.Message
	if simID != "" {
		if sim, err = s.store.GetSimulation(ctx, simID); err != nil {
			return nil, err
		}
		if sim.CaseID != p.CaseID {
			return nil, domain.NewDomainError(op, domain.ErrInvalidInput,
				fmt.Sprintf("participant %s is not part of case %s", p.ID, sim.CaseID))
		}
		history, err := s.store.ListMessages(ctx, sim.ID, 0, 0)
		if err != nil {
			return nil, err
		}
		seed = seedFor(history, p.ID)
	}

	agent, err := s.agentFor(p, seed)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, agent)
	if err != nil {
		return nil, err
	}

	result := &RoleResult{ParticipantID: p.ID, AgentName: agent.Name(), Response: resp}
	if sim == nil {
		return result, nil
	}

	m := &domain.SimulationMessage{
		SimulationID:    sim.ID,
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
		ParticipantRole: p.Role,
		Role:            transcriptRole(agent.Role()),
		Content:         resp.Message,
		Metadata: map[string]any{
			metaOperation: operation,
			metaInput:     lastInput(agent),
		},
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	result.Message = m
	return result, nil
}

func notCapable(a courtroom.Agent, operation string) error {
	return domain.NewDomainError("simulation."+operation, domain.ErrInvalidInput,
		fmt.Sprintf("%s agent %q cannot perform %s", a.Kind(), a.Name(), operation))
}
