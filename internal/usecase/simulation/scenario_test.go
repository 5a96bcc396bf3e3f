package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

// speakerReplies labels every reply with the persona's opening line.
func speakerReplies(req domain.ChatRequest) (string, error) {
	first, _, _ := strings.Cut(persona(req), "\n")
	return "said by: " + first, nil
}

func TestRunScenario(t *testing.T) {
	llm := &mockLLM{reply: speakerReplies}
	svc, store := newTestService(llm)
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	res, err := svc.RunScenario(ctx, sim.ID, ScenarioRun{
		Scenario:      "Opening statements on custody.",
		SpeakingOrder: []string{"client", "legal_counsel", "judicial", "bailiff"},
		Context:       map[string]any{"phase": "opening"},
	})
	require.NoError(t, err)

	require.Len(t, res.Messages, 3)
	assert.Equal(t, []string{"client", "legal_counsel", "judicial", "bailiff"}, res.SpeakingOrder)
	assert.Len(t, res.Participants, 5)

	client, counsel, judge := res.Messages[0], res.Messages[1], res.Messages[2]
	assert.Equal(t, fc.Participants[domain.RosterClient].ID, client.ParticipantID)
	assert.Equal(t, domain.RoleUser, client.Role)
	assert.Contains(t, client.Content, "You are John")

	assert.Equal(t, fc.Participants[domain.RosterClientCounsel].ID, counsel.ParticipantID)
	assert.Equal(t, domain.RosterClientCounsel, counsel.ParticipantRole)
	assert.Equal(t, domain.RoleAssistant, counsel.Role)
	assert.Contains(t, counsel.Content, "representing John")

	assert.Equal(t, fc.Participants[domain.RosterJudge].ID, judge.ParticipantID)
	assert.Equal(t, domain.RosterJudge, judge.Metadata[metaSpeakerKey])
	assert.Equal(t, map[string]any{"phase": "opening"}, judge.Metadata[metaContext])
	input, _ := judge.Metadata[metaInput].(string)
	assert.Contains(t, input, "Opening statements on custody.")
	assert.Contains(t, input, "John: said by:")
	assert.Contains(t, input, "John's Attorney: said by:")

	stored, err := store.ListMessages(ctx, sim.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	got, err := store.GetSimulation(ctx, sim.ID)
	require.NoError(t, err)
	last, ok := got.Metadata[metaLastRun].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Opening statements on custody.", last["scenario"])
	assert.NotEmpty(t, last[metaTimestamp])
}

func TestRunScenario_SeedsEarlierTurns(t *testing.T) {
	llm := &mockLLM{}
	svc, _ := newTestService(llm)
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{Scenario: "First question", SpeakingOrder: []string{"client"}})
	require.NoError(t, err)
	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{Scenario: "Second question", SpeakingOrder: []string{"client"}})
	require.NoError(t, err)

	calls := llm.calls()
	require.Len(t, calls, 2)
	msgs := calls[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "First question"}, stripTime(msgs[1]))
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "reply 1"}, stripTime(msgs[2]))
	assert.Equal(t, "Second question", msgs[3].Content)
}

func stripTime(m domain.Message) domain.Message {
	return domain.Message{Role: m.Role, Content: m.Content, Name: m.Name}
}

func TestRunScenario_Validation(t *testing.T) {
	svc, _ := newTestService(&mockLLM{})
	ctx := context.Background()

	_, err := svc.RunScenario(ctx, "sim", ScenarioRun{SpeakingOrder: []string{"client"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.RunScenario(ctx, "sim", ScenarioRun{Scenario: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.RunScenario(ctx, "missing", ScenarioRun{Scenario: "x", SpeakingOrder: []string{"client"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c := &domain.Case{Title: "Empty", CaseType: "civil"}
	require.NoError(t, svc.CreateCase(ctx, c))
	sim, err := svc.CreateSimulation(ctx, c.ID, "Hearing", "hearing")
	require.NoError(t, err)
	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{Scenario: "x", SpeakingOrder: []string{"client"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunScenario_FailureKeepsEarlierTurns(t *testing.T) {
	llm := &mockLLM{reply: func(req domain.ChatRequest) (string, error) {
		if strings.Contains(persona(req), "judge") {
			return "", fmt.Errorf("%w: upstream 503", domain.ErrProviderError)
		}
		return "ok", nil
	}}
	svc, store := newTestService(llm)
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{
		Scenario:      "Closing",
		SpeakingOrder: []string{"client", "judge", "opposing_party"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.True(t, domain.IsRetryableError(err))

	stored, err := store.ListMessages(ctx, sim.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ok", stored[0].Content)

	got, err := store.GetSimulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Metadata, metaLastRun)
}

func TestRunScenario_PersistFailureStops(t *testing.T) {
	llm := &mockLLM{}
	svc, store := newTestService(llm)
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	store.appendErr = errors.New("disk full")
	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{Scenario: "x", SpeakingOrder: []string{"client", "judge"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, llm.calls(), 1)
}

func TestMapSpeakingOrder(t *testing.T) {
	full := courtroom.Roster{
		domain.RosterClientCounsel:   nil,
		domain.RosterOpposingCounsel: nil,
		domain.RosterJudge:           nil,
	}
	assert.Equal(t,
		[]string{"client_counsel", "judge", "client_counsel", "witness"},
		mapSpeakingOrder(full, []string{"legal_counsel", "judicial", "client_counsel", "witness"}))

	opposingOnly := courtroom.Roster{domain.RosterOpposingCounsel: nil}
	assert.Equal(t, []string{"opposing_counsel"}, mapSpeakingOrder(opposingOnly, []string{"legal_counsel"}))
}

const predictionAnswer = `I estimate a 70% likelihood of shared custody.
Stability weighs in John's favor; the record is favorable.

Recommendations:
- Keep a parenting log
- Attend mediation`

func TestPredictOutcome_UsesStoredJudge(t *testing.T) {
	llm := &mockLLM{reply: func(req domain.ChatRequest) (string, error) { return predictionAnswer, nil }}
	svc, store := newTestService(llm)
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)
	_, err = svc.AddMessage(ctx, sim.ID, fc.Participants[domain.RosterClient].ID, "I have a stable home.", nil)
	require.NoError(t, err)

	res, err := svc.PredictOutcome(ctx, sim.ID, OutcomeRequest{
		ScenarioDescription: "Final hearing",
		Factors:             []domain.Factor{{Name: "Stability", Description: "Home stability"}, {Name: "Income"}},
		FocusAreas:          []string{"custody"},
	})
	require.NoError(t, err)

	assert.Equal(t, fc.Case.ID, res.CaseID)
	assert.Equal(t, "family", res.CaseType)
	assert.InDelta(t, 0.7, res.Likelihood, 1e-9)
	assert.Equal(t, []domain.KeyFactor{{Name: "Stability", Impact: "positive", Weight: "high"}}, res.KeyFactors)
	assert.Equal(t, []string{"Keep a parenting log", "Attend mediation"}, res.Recommendations)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, persona(calls[0]), "Family Court")
	prompt := lastUserContent(calls[0])
	assert.Contains(t, prompt, "John (client): I have a stable home.")
	assert.Contains(t, prompt, "CASE DESCRIPTION: Dispute over primary custody")

	got, err := store.GetSimulation(ctx, sim.ID)
	require.NoError(t, err)
	meta, ok := got.Metadata[metaPrediction].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.7, meta["likelihood"], 1e-9)
	assert.Equal(t, []string{"Stability"}, meta["key_factors"])
}

func TestPredictOutcome_StandInJudge(t *testing.T) {
	llm := &mockLLM{reply: func(req domain.ChatRequest) (string, error) { return "Uncertain.", nil }}
	svc, _ := newTestService(llm)
	ctx := context.Background()

	c := &domain.Case{Title: "Contract", CaseType: "civil", Description: "Breach"}
	require.NoError(t, svc.CreateCase(ctx, c))
	sim, err := svc.CreateSimulation(ctx, c.ID, "Hearing", "hearing")
	require.NoError(t, err)

	res, err := svc.PredictOutcome(ctx, sim.ID, OutcomeRequest{CaseID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, courtroom.DefaultLikelihood, res.Likelihood)
	assert.Equal(t, []string{NoRecommendations}, res.Recommendations)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, persona(calls[0]), "judge in the Court.")
}

func TestPredictOutcome_UnknownCase(t *testing.T) {
	svc, _ := newTestService(&mockLLM{})
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	_, err = svc.PredictOutcome(ctx, sim.ID, OutcomeRequest{CaseID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunScenario_OnTurn(t *testing.T) {
	svc, store := newTestService(&mockLLM{})
	ctx := context.Background()
	fc := familyCase(t, svc)
	sim, err := svc.CreateSimulation(ctx, fc.Case.ID, "Hearing", "hearing")
	require.NoError(t, err)

	var seen []string
	stop := errors.New("client hung up")
	_, err = svc.RunScenario(ctx, sim.ID, ScenarioRun{
		Scenario:      "Opening",
		SpeakingOrder: []string{"client", "opposing_party", "judge"},
		OnTurn: func(_ context.Context, m *domain.SimulationMessage) error {
			seen = append(seen, m.ParticipantRole)
			if len(seen) == 2 {
				return stop
			}
			return nil
		},
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, []string{domain.RosterClient, domain.RosterOpposingParty}, seen)

	stored, err := store.ListMessages(ctx, sim.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
