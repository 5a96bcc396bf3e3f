package simulation

import (
	"context"
	"fmt"
	"time"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

// reverseRoles resolves a speaking-order entry that names an agent type
// instead of a roster key. Candidates are tried in order.
var reverseRoles = map[string][]string{
	courtroom.RoleLegalCounsel: {domain.RosterClientCounsel, domain.RosterOpposingCounsel},
	"judicial":                 {domain.RosterJudge},
}

// ScenarioRun is the input to RunScenario.
type ScenarioRun struct {
	Scenario      string         `json:"scenario"`
	SpeakingOrder []string       `json:"speaking_order"`
	Context       map[string]any `json:"context,omitempty"`

	// OnTurn, if set, sees each turn after it is persisted. An error stops
	// the exchange.
	OnTurn func(ctx context.Context, m *domain.SimulationMessage) error `json:"-"`
}

// ScenarioResult lists the messages a scenario produced.
type ScenarioResult struct {
	SimulationID  string                      `json:"conversation_id"`
	Messages      []*domain.SimulationMessage `json:"messages"`
	Scenario      string                      `json:"scenario"`
	SpeakingOrder []string                    `json:"speaking_order"`
	Participants  []string                    `json:"participants"`
}

// RunScenario rebuilds the case roster from storage, runs one exchange over
// it and persists every turn as it is produced. Turns persisted before a
// failure are kept.
func (s *Service) RunScenario(ctx context.Context, simID string, run ScenarioRun) (*ScenarioResult, error) {
	const op = "simulation.RunScenario"
	if run.Scenario == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "scenario is required")
	}
	if len(run.SpeakingOrder) == 0 {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "speaking_order is required")
	}

	sim, err := s.store.GetSimulation(ctx, simID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, sim.CaseID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, domain.NewDomainError(op, domain.ErrNotFound, "no participants for case "+sim.CaseID)
	}
	history, err := s.store.ListMessages(ctx, sim.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	roster := make(courtroom.Roster, len(participants))
	byKey := make(map[string]*domain.Participant, len(participants))
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		agent, err := s.agentFor(p, seedFor(history, p.ID))
		if err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", p.Role, err)
		}
		if _, dup := roster[p.Role]; dup {
			s.logger.Warn("duplicate roster key, later participant wins", "role", p.Role, "participant", p.ID)
		}
		roster[p.Role] = agent
		byKey[p.Role] = p
		names = append(names, p.Name)
	}

	order := mapSpeakingOrder(roster, run.SpeakingOrder)
	s.logger.Debug("speaking order mapped", "requested", run.SpeakingOrder, "mapped", order)

	result := &ScenarioResult{
		SimulationID:  sim.ID,
		Scenario:      run.Scenario,
		SpeakingOrder: run.SpeakingOrder,
		Participants:  names,
	}

	persist := func(ctx context.Context, turn domain.Turn, input string) error {
		p := byKey[turn.Speaker]
		m := &domain.SimulationMessage{
			SimulationID:    sim.ID,
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			ParticipantRole: p.Role,
			Role:            transcriptRole(turn.Role),
			Content:         turn.Message,
			Metadata: map[string]any{
				metaSpeakerKey: turn.Speaker,
				metaInput:      input,
			},
		}
		if len(run.Context) > 0 {
			m.Metadata[metaContext] = run.Context
		}
		if err := s.store.AppendMessage(ctx, m); err != nil {
			return err
		}
		result.Messages = append(result.Messages, m)
		if run.OnTurn != nil {
			return run.OnTurn(ctx, m)
		}
		return nil
	}

	if _, err := s.factory.SimulateExchange(ctx, roster, run.Scenario, order, courtroom.WithTurnObserver(persist)); err != nil {
		s.logger.Error("scenario failed", "simulation_id", sim.ID, "persisted", len(result.Messages), "error", err)
		return nil, err
	}

	sim.Metadata = mergeMetadata(sim.Metadata, metaLastRun, map[string]any{
		"scenario":       run.Scenario,
		"speaking_order": run.SpeakingOrder,
		metaTimestamp:    s.now().Format(time.RFC3339),
	})
	if err := s.store.UpdateSimulation(ctx, sim); err != nil {
		return nil, err
	}

	s.logger.Info("scenario completed", "simulation_id", sim.ID, "turns", len(result.Messages))
	return result, nil
}

// mapSpeakingOrder keeps entries present in roster and maps the rest through
// reverseRoles. Entries that still do not resolve are passed on unchanged and
// skipped by the exchange.
func mapSpeakingOrder(roster courtroom.Roster, order []string) []string {
	mapped := make([]string, 0, len(order))
	for _, speaker := range order {
		if _, ok := roster[speaker]; !ok {
			for _, key := range reverseRoles[speaker] {
				if _, ok := roster[key]; ok {
					speaker = key
					break
				}
			}
		}
		mapped = append(mapped, speaker)
	}
	return mapped
}

// NoRecommendations stands in when the judge's answer carries none.
const NoRecommendations = "No specific recommendations provided"

// OutcomeRequest is the input to PredictOutcome.
type OutcomeRequest struct {
	CaseID              string          `json:"case_id"`
	ScenarioDescription string          `json:"scenario_description"`
	Factors             []domain.Factor `json:"factors"`
	FocusAreas          []string        `json:"focus_areas,omitempty"`
}

// OutcomeResult wraps a prediction with the case it was made for.
type OutcomeResult struct {
	CaseID    string    `json:"case_id"`
	CaseType  string    `json:"case_type"`
	Predicted time.Time `json:"prediction_time"`
	*domain.Prediction
}

// PredictOutcome asks the case's judge, or a stand-in judge when the roster
// has none, to estimate the outcome from the simulation transcript.
func (s *Service) PredictOutcome(ctx context.Context, simID string, req OutcomeRequest) (*OutcomeResult, error) {
	sim, err := s.store.GetSimulation(ctx, simID)
	if err != nil {
		return nil, err
	}
	caseID := req.CaseID
	if caseID == "" {
		caseID = sim.CaseID
	}
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, sim.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	transcript := make([]domain.TranscriptEntry, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, domain.TranscriptEntry{
			Speaker: m.ParticipantName,
			Role:    m.ParticipantRole,
			Content: m.Content,
		})
	}

	judge, err := s.judgeFor(ctx, c)
	if err != nil {
		return nil, err
	}

	pred, err := s.predictor.Predict(ctx, courtroom.PredictionRequest{
		Judge:               judge,
		CaseType:            c.CaseType,
		CaseDescription:     c.Description,
		ScenarioDescription: req.ScenarioDescription,
		Factors:             req.Factors,
		FocusAreas:          req.FocusAreas,
		Transcript:          transcript,
	})
	if err != nil {
		return nil, err
	}
	if len(pred.Recommendations) == 0 {
		pred.Recommendations = []string{NoRecommendations}
	}

	now := s.now()
	factorNames := make([]string, 0, len(pred.KeyFactors))
	for _, f := range pred.KeyFactors {
		factorNames = append(factorNames, f.Name)
	}
	sim.Metadata = mergeMetadata(sim.Metadata, metaPrediction, map[string]any{
		"likelihood":  pred.Likelihood,
		"key_factors": factorNames,
		metaTimestamp: now.Format(time.RFC3339),
	})
	if err := s.store.UpdateSimulation(ctx, sim); err != nil {
		return nil, err
	}

	return &OutcomeResult{CaseID: c.ID, CaseType: c.CaseType, Predicted: now, Prediction: pred}, nil
}

// judgeFor rebuilds the case's stored judge, or creates a stand-in whose
// jurisdiction follows the case type.
func (s *Service) judgeFor(ctx context.Context, c *domain.Case) (*courtroom.Judicial, error) {
	participants, err := s.store.ListParticipants(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	var agent courtroom.Agent
	for _, p := range participants {
		if p.Role == domain.RosterJudge {
			if agent, err = s.agentFor(p, nil); err != nil {
				return nil, err
			}
			break
		}
	}
	if agent == nil {
		jurisdiction := "Court"
		if c.CaseType == "family" {
			jurisdiction = courtroom.DefaultJurisdiction
		}
		agent, err = s.factory.CreateAgent("judicial", courtroom.Params{
			courtroom.ParamName:         courtroom.DefaultJudgeName,
			courtroom.ParamJurisdiction: jurisdiction,
		})
		if err != nil {
			return nil, err
		}
	}
	judge, ok := agent.(*courtroom.Judicial)
	if !ok {
		return nil, domain.NewDomainError("simulation.PredictOutcome", domain.ErrInvalidInput,
			fmt.Sprintf("judge participant is a %s agent", agent.Kind()))
	}
	return judge, nil
}
