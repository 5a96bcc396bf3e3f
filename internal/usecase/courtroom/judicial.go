package courtroom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"virtual-courtroom/internal/domain"
)

// Judicial defaults.
const (
	DefaultJudgeName       = "Judge"
	DefaultJurisdiction    = "Family Court"
	DefaultLegalExperience = 20
)

// JudicialConfig configures a Judicial agent. Every field is optional.
type JudicialConfig struct {
	Name            string
	Jurisdiction    string
	LegalExperience int // years; zero selects the default
	SystemPrompt    string
	Params          GenerationParams
	Seed            []domain.Message
}

// Judicial presides, rules and predicts outcomes.
type Judicial struct {
	*core

	jurisdiction    string
	legalExperience int
}

var _ Agent = (*Judicial)(nil)

func NewJudicial(cfg JudicialConfig, deps Deps) *Judicial {
	j := &Judicial{
		jurisdiction:    cfg.Jurisdiction,
		legalExperience: cfg.LegalExperience,
	}
	name := cfg.Name
	if name == "" {
		name = DefaultJudgeName
	}
	if j.jurisdiction == "" {
		j.jurisdiction = DefaultJurisdiction
	}
	if j.legalExperience <= 0 {
		j.legalExperience = DefaultLegalExperience
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = j.DefaultPersonaPrompt()
	}
	j.core = newCore(deps, KindJudicial, name, RoleJudge, prompt, cfg.Params, cfg.Seed)
	return j
}

func (j *Judicial) Jurisdiction() string { return j.jurisdiction }
func (j *Judicial) LegalExperience() int { return j.legalExperience }

func (j *Judicial) DefaultPersonaPrompt() string {
	return fmt.Sprintf(`You are a %d-year experienced judge in the %s.
Your role is to preside over legal proceedings, maintain order, and make judicial determinations
based on presented evidence, legal arguments, and applicable law.

As a judicial officer, you must:

1. Remain strictly neutral and impartial at all times
2. Base your decisions solely on facts, evidence, and relevant law
3. Maintain procedural fairness and give all parties equal opportunity
4. Ask clarifying questions when necessary to understand positions
5. Provide clear reasoning for all rulings and judgments
6. Respect legal precedent and statutory requirements
7. Handle family matters with appropriate sensitivity and focus on the best interests of any children involved
8. Control the courtroom environment and prevent inappropriate conduct

You have access to standard legal references and precedents in your jurisdiction.

When issuing rulings, always:
- Reference specific legal standards that apply
- Address all key arguments made by both sides
- Explain your reasoning in clear, authoritative language
- Specify any remedies, penalties, or requirements resulting from your decision

Your demeanor should be dignified, authoritative but fair, and professional at all times.`,
		j.legalExperience, j.jurisdiction)
}

// Process behaves like every other agent and additionally lifts the text
// after the first "REASONING:" marker into the response's Reasoning.
func (j *Judicial) Process(ctx context.Context, input string) (*domain.AgentResponse, error) {
	text, err := j.generate(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := respond(text, map[string]any{
		"jurisdiction": j.jurisdiction,
		"experience":   j.legalExperience,
	})
	if reasoning, ok := ExtractReasoning(text); ok {
		resp.Reasoning = reasoning
	}
	return resp, nil
}

// IssueRuling asks for a formal ruling over the case and the parties' arguments.
func (j *Judicial) IssueRuling(ctx context.Context, details map[string]any, arguments []map[string]any) (*domain.AgentResponse, error) {
	rendered := make([]string, 0, len(arguments))
	for i, arg := range arguments {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, domain.NewDomainError("Judicial.IssueRuling", domain.ErrInvalidInput, err.Error())
		}
		rendered = append(rendered, fmt.Sprintf("%d. %s", i+1, b))
	}
	prompt := fmt.Sprintf(`Based on the following case and arguments, issue a formal ruling:

CASE DETAILS:
%s

ARGUMENTS PRESENTED:
%s

Please provide your ruling with clear legal reasoning and citation of relevant precedents or statutes.`,
		bullets(details), strings.Join(rendered, "\n"))
	return j.Process(ctx, prompt)
}
