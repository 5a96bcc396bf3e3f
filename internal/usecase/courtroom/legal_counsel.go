package courtroom

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"virtual-courtroom/internal/domain"
)

// Legal counsel defaults.
const (
	DefaultSpecialization   = "Family Law"
	DefaultExperienceLevel  = "Senior"
	DefaultAggressiveFactor = 0.5
)

// Tone and cross-examination thresholds on the aggressive factor.
const (
	assertiveThreshold = 0.7
	firmThreshold      = 0.4
)

// Tone bands spliced into the counsel persona.
const (
	toneAssertive  = "You are assertive and forceful in your arguments, pushing hard for your client's interests."
	toneFirm       = "You are firm but professional, balancing advocacy with respectful discourse."
	toneDiplomatic = "You are diplomatic and solution-oriented, seeking reasonable compromise while protecting client interests."
)

// Cross-examination styles.
const (
	StyleAggressive = "aggressive"
	StyleMethodical = "methodical"
)

// LegalCounselConfig configures a LegalCounsel. A nil AggressiveFactor
// selects DefaultAggressiveFactor.
type LegalCounselConfig struct {
	Name             Field[string]
	Representing     Field[string]
	Specialization   string
	ExperienceLevel  string
	AggressiveFactor *float64
	SystemPrompt     string
	Params           GenerationParams
	Seed             []domain.Message
}

// LegalCounsel is an attorney for one of the parties.
type LegalCounsel struct {
	*core

	nameField       Field[string]
	representing    Field[string]
	specialization  string
	experienceLevel string
	aggressive      float64
	strategies      map[string][]string
}

var _ Agent = (*LegalCounsel)(nil)

// NewLegalCounsel builds a counsel. The aggressive factor is clamped to [0,1].
func NewLegalCounsel(cfg LegalCounselConfig, deps Deps) *LegalCounsel {
	l := &LegalCounsel{
		nameField:       cfg.Name,
		representing:    cfg.Representing,
		specialization:  cfg.Specialization,
		experienceLevel: cfg.ExperienceLevel,
		aggressive:      DefaultAggressiveFactor,
		strategies:      defaultStrategies(),
	}
	if cfg.AggressiveFactor != nil {
		l.aggressive = clamp01(*cfg.AggressiveFactor)
	}
	if !l.nameField.IsSet() || l.nameField.Value == "" {
		l.nameField = DefaultedTo(defaultName(RoleLegalCounsel), RoleLegalCounsel)
	}
	if !l.representing.IsSet() || l.representing.Value == "" {
		l.representing = DefaultedTo(representingFromName(l.nameField.Value), RoleLegalCounsel)
	}
	if l.specialization == "" {
		l.specialization = DefaultSpecialization
	}
	if l.experienceLevel == "" {
		l.experienceLevel = DefaultExperienceLevel
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = l.DefaultPersonaPrompt()
	}
	l.core = newCore(deps, KindLegalCounsel, l.nameField.Value, RoleLegalCounsel, prompt, cfg.Params, cfg.Seed)

	var notes []defaultNote
	notes = noteIfDefaulted(notes, ParamName, l.nameField)
	notes = noteIfDefaulted(notes, ParamRepresenting, l.representing)
	l.recordDefaults(notes)
	return l
}

func (l *LegalCounsel) NameField() Field[string]    { return l.nameField }
func (l *LegalCounsel) Representing() Field[string] { return l.representing }
func (l *LegalCounsel) Specialization() string      { return l.specialization }
func (l *LegalCounsel) ExperienceLevel() string     { return l.experienceLevel }
func (l *LegalCounsel) AggressiveFactor() float64   { return l.aggressive }

// Strategies returns the built-in playbook keyed by area.
func (l *LegalCounsel) Strategies() map[string][]string {
	out := make(map[string][]string, len(l.strategies))
	for k, v := range l.strategies {
		out[k] = slices.Clone(v)
	}
	return out
}

// Tone returns the persona tone band selected by the aggressive factor.
func (l *LegalCounsel) Tone() string {
	switch {
	case l.aggressive > assertiveThreshold:
		return toneAssertive
	case l.aggressive > firmThreshold:
		return toneFirm
	default:
		return toneDiplomatic
	}
}

// CrossExaminationStyle is aggressive above the assertive threshold.
func (l *LegalCounsel) CrossExaminationStyle() string {
	if l.aggressive > assertiveThreshold {
		return StyleAggressive
	}
	return StyleMethodical
}

func (l *LegalCounsel) DefaultPersonaPrompt() string {
	return fmt.Sprintf(`You are a %s attorney specializing in %s, representing %s.
%s

As legal counsel, you must:

1. Zealously represent your client's interests within ethical boundaries
2. Construct persuasive legal arguments based on facts and applicable law
3. Challenge opposing evidence and arguments when appropriate
4. Advise your client on legal strategy and likely outcomes
5. Maintain attorney-client privilege and confidentiality
6. Adhere to legal procedures and court protocols
7. Prepare and present evidence in a compelling manner

In family court matters:
- Focus arguments on the best interests of any children involved
- Address financial considerations with appropriate documentation
- Demonstrate your client's parenting capabilities and stability
- Counter negative portrayals of your client with positive evidence

Your professional demeanor should be confident, articulate, and respectful of the court.`,
		l.experienceLevel, l.specialization, l.representing.Value, l.Tone())
}

func (l *LegalCounsel) Process(ctx context.Context, input string) (*domain.AgentResponse, error) {
	text, err := l.generate(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(text, map[string]any{
		"representing":      l.representing.Value,
		"specialization":    l.specialization,
		"experience_level":  l.experienceLevel,
		"aggressive_factor": l.aggressive,
	}), nil
}

// PrepareArgument drafts a five-part argument on issue from facts.
func (l *LegalCounsel) PrepareArgument(ctx context.Context, facts map[string]any, issue string) (*domain.AgentResponse, error) {
	prompt := fmt.Sprintf(`Prepare a formal legal argument addressing the following issue:

ISSUE: %s

RELEVANT FACTS:
%s

Please structure your argument with:
1. A clear position statement
2. Supporting facts and evidence
3. Applicable legal precedents or statutes
4. Anticipation and rebuttal of opposing arguments
5. Requested relief or outcome

Remember that you are representing %s in this matter.`,
		issue, bullets(facts), l.representing.Value)
	return l.Process(ctx, prompt)
}

// CrossExamine drafts questions for witness probing the listed weaknesses.
func (l *LegalCounsel) CrossExamine(ctx context.Context, witness, testimony string, weaknesses []string) (*domain.AgentResponse, error) {
	prompt := fmt.Sprintf(`Prepare a %s cross-examination for witness %s.

PREVIOUS TESTIMONY:
%s

POTENTIAL WEAKNESSES TO EXPLORE:
%s

Develop a series of questions that:
1. Establish any inconsistencies in the testimony
2. Challenge credibility where appropriate
3. Extract admissions favorable to your client (%s)
4. Maintain proper courtroom decorum

Format your response as a series of specific questions with brief explanations of your strategy for each.`,
		l.CrossExaminationStyle(), witness, testimony, strings.Join(weaknesses, ", "), l.representing.Value)
	return l.Process(ctx, prompt)
}

func defaultStrategies() map[string][]string {
	return map[string][]string{
		"family_law": {
			"Focus on best interests of children",
			"Emphasize client's parenting capabilities",
			"Highlight financial stability",
			"Demonstrate consistent involvement in child's life",
		},
		"evidence_tactics": {
			"Question credibility of opposing evidence",
			"Emphasize client's documentation and evidence",
			"Focus on timeline inconsistencies",
			"Highlight favorable witness testimony",
		},
	}
}

// representingFromName strips the "'s Attorney" suffix convention.
func representingFromName(name string) string {
	if i := strings.Index(name, attorneySuffix); i >= 0 {
		return name[:i]
	}
	return name
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
