package domain

// Roster keys used by the canonical family-court roster.
const (
	RosterClient          = "client"
	RosterOpposingParty   = "opposing_party"
	RosterClientCounsel   = "client_counsel"
	RosterOpposingCounsel = "opposing_counsel"
	RosterJudge           = "judge"
)

// AgentResponse is the result of one agent call. It is produced fresh per call
// and never retained by the agent itself.
type AgentResponse struct {
	Message    string         `json:"message"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Turn is one agent's contribution to an exchange.
type Turn struct {
	Speaker string `json:"speaker"` // roster key
	Name    string `json:"name"`
	Role    string `json:"role"` // agent role tag
	Message string `json:"message"`
}

// TranscriptEntry is one line of a persisted transcript fed to the predictor.
type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Factor is a named consideration supplied to the outcome predictor.
type Factor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Factor impact and weight labels.
const (
	ImpactPositive = "positive"
	ImpactNegative = "negative"
	WeightHigh     = "high"
	WeightMedium   = "medium"
)

// KeyFactor is a factor the predictor found referenced in the judge's output.
type KeyFactor struct {
	Name   string `json:"name"`
	Impact string `json:"impact"`
	Weight string `json:"weight"`
}

// Prediction is a coarse, heuristically extracted outcome estimate.
type Prediction struct {
	Likelihood      float64     `json:"likelihood"`
	Rationale       string      `json:"rationale"`
	KeyFactors      []KeyFactor `json:"key_factors"`
	Recommendations []string    `json:"recommendations"`
	Model           string      `json:"model,omitempty"`
}
