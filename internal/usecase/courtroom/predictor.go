package courtroom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/tracer"
)

// MaxTranscriptEntries bounds how much of the transcript reaches the prompt.
const MaxTranscriptEntries = 10

// PredictionRequest is the input to Predictor.Predict.
type PredictionRequest struct {
	Judge               *Judicial
	CaseType            string
	CaseDescription     string
	ScenarioDescription string
	Factors             []domain.Factor
	FocusAreas          []string
	Transcript          []domain.TranscriptEntry
}

// Predictor asks a judge for an outcome estimate and extracts structure from
// the free-text answer. The result is approximate by construction.
type Predictor struct {
	logger *slog.Logger
}

func NewPredictor(logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{logger: logger}
}

// Predict makes exactly one judge call.
func (p *Predictor) Predict(ctx context.Context, req PredictionRequest) (*domain.Prediction, error) {
	if req.Judge == nil {
		return nil, domain.NewDomainError("Predictor.Predict", domain.ErrInvalidInput, "judge is required")
	}

	ctx, span := tracer.StartSpan(ctx, "courtroom.predict",
		trace.WithAttributes(
			tracer.StringAttr("case.type", req.CaseType),
			tracer.IntAttr("prediction.factors", len(req.Factors)),
			tracer.IntAttr("prediction.transcript", len(req.Transcript)),
		),
	)
	defer span.End()

	resp, err := req.Judge.Process(ctx, BuildPredictionPrompt(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	text := resp.Message
	pred := &domain.Prediction{
		Likelihood:      ExtractLikelihood(text),
		Rationale:       text,
		KeyFactors:      ExtractKeyFactors(text, req.Factors),
		Recommendations: ExtractRecommendations(text),
		Model:           req.Judge.Params().Model,
	}

	tracer.SetOK(span)
	p.logger.Info("outcome predicted",
		"likelihood", pred.Likelihood,
		"key_factors", len(pred.KeyFactors),
		"recommendations", len(pred.Recommendations),
	)
	return pred, nil
}

// BuildPredictionPrompt renders the single prediction prompt.
func BuildPredictionPrompt(req PredictionRequest) string {
	factorLines := make([]string, 0, len(req.Factors))
	for _, f := range req.Factors {
		factorLines = append(factorLines, fmt.Sprintf("- %s: %s", f.Name, f.Description))
	}

	var focus string
	if len(req.FocusAreas) > 0 {
		focus = "Focus Areas:\n" + list(req.FocusAreas)
	}

	transcript := req.Transcript
	if len(transcript) > MaxTranscriptEntries {
		transcript = transcript[:MaxTranscriptEntries]
	}
	exchangeLines := make([]string, 0, len(transcript))
	for _, e := range transcript {
		exchangeLines = append(exchangeLines, fmt.Sprintf("%s (%s): %s", e.Speaker, e.Role, e.Content))
	}

	var b strings.Builder
	b.WriteString("Based on the following case information and simulation exchanges, predict the likely outcome of this case.\n\n")
	fmt.Fprintf(&b, "CASE TYPE: %s\n", req.CaseType)
	fmt.Fprintf(&b, "CASE DESCRIPTION: %s\n\n", req.CaseDescription)
	fmt.Fprintf(&b, "SCENARIO: %s\n\n", req.ScenarioDescription)
	b.WriteString("KEY FACTORS:\n")
	b.WriteString(strings.Join(factorLines, "\n"))
	b.WriteString("\n\n")
	if focus != "" {
		b.WriteString(focus)
		b.WriteString("\n\n")
	}
	b.WriteString("PREVIOUS EXCHANGES:\n")
	b.WriteString(strings.Join(exchangeLines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(`Please provide:
1. The likely outcome with a likelihood percentage
2. Your legal rationale for this prediction
3. The key factors that influenced your decision
4. Recommendations for the client`)
	return b.String()
}
