package courtroom

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-courtroom/internal/domain"
)

func TestExtractLikelihood(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"percentage", "There is a 65% chance of primary custody.", 0.65},
		{"first match wins", "65% now, 80% later", 0.65},
		{"no percentage", "The outcome is uncertain.", 0.5},
		{"over one hundred clamps", "150% sure", 1.0},
		{"zero", "0% likely", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExtractLikelihood(tt.text), 1e-9)
		})
	}
}

func TestExtractRecommendations(t *testing.T) {
	text := `Likely outcome: 70%.

## Recommendations:
- Keep a parenting journal
- Attend mediation

# Heading is dropped
- Gather school records
-- Document income
- Stay courteous
- Sixth item is cut`

	got := ExtractRecommendations(text)
	assert.Equal(t, []string{
		"Keep a parenting journal",
		"Attend mediation",
		"Gather school records",
		"Document income",
		"Stay courteous",
	}, got)
}

func TestExtractRecommendations_SuggestionsMarker(t *testing.T) {
	got := ExtractRecommendations("Outcome favorable.\nSUGGESTIONS\n- Settle early")
	assert.Equal(t, []string{"Settle early"}, got)
}

func TestExtractRecommendations_SkipsHeadingLine(t *testing.T) {
	text := "Likelihood 60%.\n4. Recommendations for the client:\n- Keep records\n- Attend mediation"
	assert.Equal(t, []string{"Keep records", "Attend mediation"}, ExtractRecommendations(text))

	assert.Empty(t, ExtractRecommendations("Recommendations: none"))
}

func TestExtractRecommendations_NoMarker(t *testing.T) {
	assert.Empty(t, ExtractRecommendations("Nothing to add."))
}

func TestExtractKeyFactors(t *testing.T) {
	factors := []domain.Factor{
		{Name: "Stability", Description: "Home stability"},
		{Name: "Income", Description: "Earnings"},
		{Name: "Relocation", Description: "Plans to move"},
	}

	got := ExtractKeyFactors("The court finds STABILITY and income favorable to the father.", factors)
	require.Len(t, got, 2)
	assert.Equal(t, domain.KeyFactor{Name: "Stability", Impact: "positive", Weight: "high"}, got[0])
	assert.Equal(t, domain.KeyFactor{Name: "Income", Impact: "positive", Weight: "high"}, got[1])

	got = ExtractKeyFactors("Stability is lacking.", factors)
	require.Len(t, got, 1)
	assert.Equal(t, "negative", got[0].Impact)
	assert.Equal(t, "high", got[0].Weight)
}

func TestExtractReasoning_KeepsOriginalCasing(t *testing.T) {
	r, ok := ExtractReasoning("Granted. reasoning:   The Father Is Stable.  ")
	assert.True(t, ok)
	assert.Equal(t, "The Father Is Stable.", r)

	_, ok = ExtractReasoning("Granted.")
	assert.False(t, ok)
}

func TestPredict(t *testing.T) {
	answer := `I predict a 65% likelihood that John receives primary custody.
The stability factor is favorable.

Recommendations:
- Maintain the current schedule
- Provide school records`

	llm := &mockLLM{reply: func(domain.ChatRequest) (string, error) { return answer, nil }}
	judge := NewJudicial(JudicialConfig{Params: GenerationParams{Model: "gpt-4o", MaxTokens: 100}}, testDeps(llm))

	transcript := make([]domain.TranscriptEntry, 0, 12)
	for i := range 12 {
		transcript = append(transcript, domain.TranscriptEntry{
			Speaker: fmt.Sprintf("speaker-%02d", i),
			Role:    "client",
			Content: fmt.Sprintf("line %02d", i),
		})
	}

	p := NewPredictor(testLogger())
	pred, err := p.Predict(context.Background(), PredictionRequest{
		Judge:               judge,
		CaseType:            "family",
		CaseDescription:     "Custody dispute",
		ScenarioDescription: "Final hearing",
		Factors: []domain.Factor{
			{Name: "stability", Description: "Home stability"},
			{Name: "relocation", Description: "Move abroad"},
		},
		FocusAreas: []string{"custody", "visitation"},
		Transcript: transcript,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.65, pred.Likelihood)
	assert.Equal(t, answer, pred.Rationale)
	assert.Equal(t, "gpt-4o", pred.Model)
	assert.Equal(t, []domain.KeyFactor{{Name: "stability", Impact: "positive", Weight: "high"}}, pred.KeyFactors)
	assert.Equal(t, []string{"Maintain the current schedule", "Provide school records"}, pred.Recommendations)

	calls := llm.calls()
	require.Len(t, calls, 1)
	prompt := lastUserContent(calls[0])
	assert.Contains(t, prompt, "CASE TYPE: family")
	assert.Contains(t, prompt, "- stability: Home stability")
	assert.Contains(t, prompt, "Focus Areas:\n- custody\n- visitation")
	assert.Contains(t, prompt, "speaker-09 (client): line 09")
	assert.NotContains(t, prompt, "speaker-10")
}

func TestPredict_NoFocusAreasOmitsSection(t *testing.T) {
	prompt := BuildPredictionPrompt(PredictionRequest{CaseType: "family"})
	assert.NotContains(t, prompt, "Focus Areas:")
}

func TestPredict_RequiresJudge(t *testing.T) {
	_, err := NewPredictor(testLogger()).Predict(context.Background(), PredictionRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPredict_PropagatesOracleFailure(t *testing.T) {
	llm := &mockLLM{reply: func(domain.ChatRequest) (string, error) {
		return "", fmt.Errorf("%w: bad key", domain.ErrAuthInvalid)
	}}
	judge := NewJudicial(JudicialConfig{}, testDeps(llm))

	_, err := NewPredictor(testLogger()).Predict(context.Background(), PredictionRequest{Judge: judge})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.False(t, domain.IsRetryableError(err))
}
